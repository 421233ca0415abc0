package payments

import (
	"context"
	"log/slog"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/courses"
)

// Service owns the collaborator side of the payment lifecycle: it creates
// pending payments for course purchases and reads status back for display.
// The reconciliation core is the only writer of terminal states.
type Service struct {
	repo    *Repo
	courses *courses.Repo
	logger  *slog.Logger
}

func NewService(repo *Repo, courseRepo *courses.Repo) *Service {
	return &Service{repo: repo, courses: courseRepo, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

// StartPurchase creates a pending payment priced from the course row.
func (s *Service) StartPurchase(ctx context.Context, courseID int64) (Payment, error) {
	course, found, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return Payment{}, err
	}
	if !found || !course.IsActive {
		return Payment{}, ErrCourseNotAvailable
	}

	p, err := s.repo.Create(ctx, course.ID, course.Price)
	if err != nil {
		return Payment{}, err
	}

	s.logger.InfoContext(ctx, "payment created",
		"payment_id", p.ID, "course_id", course.ID, "amount", p.Amount)
	return p, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if !found {
		return Payment{}, ErrNotFound
	}
	return p, nil
}
