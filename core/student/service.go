package student

import (
	"context"
	"net/mail"
	texttmpl "text/template"
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/trezcool/feeportal/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("student not found")

	receiptTmpl = texttmpl.Must(texttmpl.New("receipt").Parse(`Hi {{.Name}},

We received your payment of {{.FeeAmount}} on {{.PaymentDate.Format "2006-01-02 15:04 MST"}}.
Your fees are now fully paid.

{{.AppName}}
`))
)

type (
	Repository interface {
		// QueryAllStudents returns every Student ordered by creation time.
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		// UpdateStudent saves the Student's name and email.
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		// MarkStudentPaid sets FeesPaid; PaymentDate is only set if not already set.
		MarkStudentPaid(ctx context.Context, userID string, at time.Time) (Student, error)
	}

	Service struct {
		repo       Repository
		mailSvc    core.EmailService
		validate   *validator.Validate
		translator ut.Translator
		appName    string
	}
)

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		mailSvc:    mailSvc,
		validate:   validate,
		translator: translator,
		appName:    conf.AppName,
	}
}

func (svc *Service) ListAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetOwn(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

// UpdateOwn applies a partial update to the Student owned by userID.
func (svc *Service) UpdateOwn(ctx context.Context, userID string, us UpdateStudent) (Student, error) {
	if err := us.Validate(svc.validate); err != nil {
		return Student{}, core.TranslateValidationErrors(err, svc.translator, "invalid profile")
	}
	st, err := svc.repo.GetStudentByUserID(ctx, userID)
	if err != nil {
		return Student{}, err
	}
	if us.IsEmpty() {
		return st, nil
	}
	return svc.repo.UpdateStudent(ctx, us.Apply(st))
}

// MarkPaid records the payment of the Student owned by userID.
// The first payment date wins: paying again returns the record unchanged.
func (svc *Service) MarkPaid(ctx context.Context, userID string, at time.Time) (Student, error) {
	st, err := svc.repo.GetStudentByUserID(ctx, userID)
	if err != nil {
		return Student{}, err
	}
	if st.FeesPaid {
		return st, nil
	}

	st, err = svc.repo.MarkStudentPaid(ctx, userID, at.UTC())
	if err != nil {
		return Student{}, err
	}
	svc.sendReceipt(st)
	return st, nil
}

func (svc *Service) sendReceipt(st Student) {
	if svc.mailSvc == nil || st.PaymentDate == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject:  svc.appName + ": payment received",
		Template: receiptTmpl,
		TemplateData: map[string]interface{}{
			"Name":        st.Name,
			"FeeAmount":   st.FeeAmount,
			"PaymentDate": *st.PaymentDate,
			"AppName":     svc.appName,
		},
	})
}
