package main

import (
	"log"
	"os"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/admin"
	"github.com/trezcool/kipimo/core/identity"
	"github.com/trezcool/kipimo/core/investor"
	"github.com/trezcool/kipimo/core/mentor"
	"github.com/trezcool/kipimo/core/student"
	"github.com/trezcool/kipimo/core/teacher"
	logsvc "github.com/trezcool/kipimo/services/logger"
	"github.com/trezcool/kipimo/storage/database"
	"github.com/trezcool/kipimo/storage/database/sqlx"
)

var std *log.Logger

func main() {
	defer os.Exit(0)

	std = log.New(os.Stderr, "REPORT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	var logger core.Logger
	if conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewConsoleLogger(std)
	}
	logger.Enable(!conf.TestMode)

	// set up the two stores
	courseDB, err := database.Open(conf.CourseDB)
	errAndDie(err)
	defer courseDB.Close()

	engageDB, err := database.Open(conf.EngagementDB)
	errAndDie(err)
	defer engageDB.Close()

	courses := sqlxrepos.NewCourseRepository(courseDB, conf.CourseDB.TablePrefix)
	engage := sqlxrepos.NewEngagementRepository(engageDB)
	resolver := identity.NewResolver(engage)

	// start CLI
	cli := commandLine{
		students:  student.NewService(courses, engage, resolver, logger),
		teachers:  teacher.NewService(courses, engage, resolver, logger),
		mentors:   mentor.NewService(courses, engage, resolver, logger),
		investors: investor.NewService(engage, logger),
		admins:    admin.NewService(courses, engage, logger),
	}
	if err := cli.run(os.Args); err != nil {
		switch err := err.(type) {
		case *core.ValidationError:
			for _, fld := range err.Fields {
				std.Printf("invalid -%s: %s\n", fld.Field, fld.Error)
			}
		default:
			if err != errHelp {
				std.Printf("\nerror: %s\n", err)
			}
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		std.Fatal(err)
	}
}
