package dummydb_test

import (
	"github.com/trezcool/kipimo/core/admin"
	"github.com/trezcool/kipimo/core/identity"
	"github.com/trezcool/kipimo/core/investor"
	"github.com/trezcool/kipimo/core/mentor"
	"github.com/trezcool/kipimo/core/student"
	"github.com/trezcool/kipimo/core/teacher"
	dummydb "github.com/trezcool/kipimo/storage/database/dummy"
)

// interface compliance checks
var (
	_ student.CourseRepository = dummydb.NewCourseRepository(nil)
	_ teacher.CourseRepository = dummydb.NewCourseRepository(nil)
	_ mentor.CourseRepository  = dummydb.NewCourseRepository(nil)
	_ admin.CourseRepository   = dummydb.NewCourseRepository(nil)

	_ identity.Repository           = dummydb.NewEngagementRepository(nil)
	_ student.EngagementRepository  = dummydb.NewEngagementRepository(nil)
	_ teacher.EngagementRepository  = dummydb.NewEngagementRepository(nil)
	_ mentor.EngagementRepository   = dummydb.NewEngagementRepository(nil)
	_ investor.EngagementRepository = dummydb.NewEngagementRepository(nil)
	_ admin.EngagementRepository    = dummydb.NewEngagementRepository(nil)
)
