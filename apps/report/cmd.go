package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/admin"
	"github.com/trezcool/kipimo/core/investor"
	"github.com/trezcool/kipimo/core/mentor"
	"github.com/trezcool/kipimo/core/student"
	"github.com/trezcool/kipimo/core/teacher"
)

var (
	errHelp = errors.New("help provided")

	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	core.InitValidators(validate, translator)
}

type commandLine struct {
	students  *student.Service
	teachers  *teacher.Service
	mentors   *mentor.Service
	investors *investor.Service
	admins    *admin.Service
}

type (
	studentRequest struct {
		UserID   int `json:"user" validate:"required,gt=0"`
		CourseID int `json:"course"`
	}

	teacherRequest struct {
		TeacherID int `json:"teacher" validate:"required,gt=0"`
		CourseID  int `json:"course"`
	}

	mentorRequest struct {
		MentorID int    `json:"mentor" validate:"required,gt=0"`
		IdeaID   string `json:"idea"`
	}

	investorRequest struct {
		InvestorID string `json:"investor" validate:"required"`
		IdeaID     string `json:"idea"`
		MentorID   string `json:"mentorUser"`
		StudentID  string `json:"studentUser"`
	}
)

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  student overall -user ID                                  - student dashboard")
	fmt.Println("  student course -user ID -course ID                        - student per-course report")
	fmt.Println("  teacher overall -teacher ID                               - teacher dashboard")
	fmt.Println("  teacher course -teacher ID -course ID                     - teacher per-course report")
	fmt.Println("  mentor overall -mentor ID                                 - mentor dashboard")
	fmt.Println("  mentor ideas -mentor ID [-idea ID]                        - mentor per-idea report")
	fmt.Println("  investor overall -investor ID                             - investor dashboard")
	fmt.Println("  investor invested -investor ID                            - investor portfolio")
	fmt.Println("  investor ideas -investor ID [-idea ID] [-mentor ID] [-student ID] - investor per-idea report")
	fmt.Println("  admin overall|learning|engagement|ideas                   - platform reports")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 3 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()
	switch args[1] {
	case "student":
		return cli.runStudent(ctx, args[2], args[3:])
	case "teacher":
		return cli.runTeacher(ctx, args[2], args[3:])
	case "mentor":
		return cli.runMentor(ctx, args[2], args[3:])
	case "investor":
		return cli.runInvestor(ctx, args[2], args[3:])
	case "admin":
		return cli.runAdmin(ctx, args[2])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runStudent(ctx context.Context, op string, args []string) error {
	cmd := flag.NewFlagSet("student "+op, flag.ExitOnError)
	userID := cmd.Int("user", 0, "The student's course-system user id.")
	courseID := cmd.Int("course", 0, "The course id.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	req := studentRequest{UserID: *userID, CourseID: *courseID}
	if err := checkRequest(req); err != nil {
		return err
	}

	switch op {
	case "overall":
		report, err := cli.students.Overall(ctx, req.UserID)
		if err != nil {
			return err
		}
		return emit(report)
	case "course":
		if req.CourseID <= 0 {
			cmd.Usage()
			return errHelp
		}
		report, err := cli.students.PerCourse(ctx, req.UserID, req.CourseID)
		if err != nil {
			return err
		}
		return emit(report)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runTeacher(ctx context.Context, op string, args []string) error {
	cmd := flag.NewFlagSet("teacher "+op, flag.ExitOnError)
	teacherID := cmd.Int("teacher", 0, "The teacher's course-system user id.")
	courseID := cmd.Int("course", 0, "The course id.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	req := teacherRequest{TeacherID: *teacherID, CourseID: *courseID}
	if err := checkRequest(req); err != nil {
		return err
	}

	switch op {
	case "overall":
		report, err := cli.teachers.Overall(ctx, req.TeacherID)
		if err != nil {
			return err
		}
		return emit(report)
	case "course":
		if req.CourseID <= 0 {
			cmd.Usage()
			return errHelp
		}
		report, err := cli.teachers.PerCourse(ctx, req.TeacherID, req.CourseID)
		if err != nil {
			return err
		}
		return emit(report)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runMentor(ctx context.Context, op string, args []string) error {
	cmd := flag.NewFlagSet("mentor "+op, flag.ExitOnError)
	mentorID := cmd.Int("mentor", 0, "The mentor's course-system user id.")
	ideaID := cmd.String("idea", "", "Restrict the report to one idea.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	req := mentorRequest{MentorID: *mentorID, IdeaID: *ideaID}
	if err := checkRequest(req); err != nil {
		return err
	}

	switch op {
	case "overall":
		report, err := cli.mentors.Overall(ctx, req.MentorID)
		if err != nil {
			return err
		}
		return emit(report)
	case "ideas":
		report, err := cli.mentors.PerIdea(ctx, req.MentorID, req.IdeaID)
		if err != nil {
			return err
		}
		return emit(report)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runInvestor(ctx context.Context, op string, args []string) error {
	cmd := flag.NewFlagSet("investor "+op, flag.ExitOnError)
	investorID := cmd.String("investor", "", "The investor's community-system user id.")
	ideaID := cmd.String("idea", "", "Restrict the report to one idea.")
	mentorID := cmd.String("mentor", "", "Restrict the report to one mentor.")
	studentID := cmd.String("student", "", "Restrict the report to one student.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	req := investorRequest{
		InvestorID: *investorID,
		IdeaID:     *ideaID,
		MentorID:   *mentorID,
		StudentID:  *studentID,
	}
	if err := checkRequest(req); err != nil {
		return err
	}

	switch op {
	case "overall":
		report, err := cli.investors.Overall(ctx, req.InvestorID)
		if err != nil {
			return err
		}
		return emit(report)
	case "invested":
		report, err := cli.investors.InvestedIdeas(ctx, req.InvestorID)
		if err != nil {
			return err
		}
		return emit(report)
	case "ideas":
		report, err := cli.investors.PerIdea(ctx, req.InvestorID, req.IdeaID, req.MentorID, req.StudentID)
		if err != nil {
			return err
		}
		return emit(report)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runAdmin(ctx context.Context, op string) error {
	var (
		report interface{}
		err    error
	)
	switch op {
	case "overall":
		report, err = cli.admins.Overall(ctx)
	case "learning":
		report, err = cli.admins.Learning(ctx)
	case "engagement":
		report, err = cli.admins.Engagement(ctx)
	case "ideas":
		report, err = cli.admins.Ideas(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
	if err != nil {
		return err
	}
	return emit(report)
}

// checkRequest validates a request struct and folds field errors into a
// core.ValidationError.
func checkRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]core.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, core.FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return core.NewValidationError(errors.New("invalid request"), flds...)
}

func emit(report interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
