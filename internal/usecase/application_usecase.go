package usecase

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/security"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// applicationForm declares the required submission fields in check order.
type applicationForm struct {
	ID        string `form:"id" validate:"required"`
	FirstName string `form:"first_name" validate:"required"`
	LastName  string `form:"last_name" validate:"required"`
	Email     string `form:"email" validate:"required"`
}

type applicationUsecase struct {
	boardRepo    domain.JobBoardRepository
	validate     *validator.Validate
	secLogger    *security.SecurityLogger
	checkUploads bool
}

// NewApplicationUsecase creates the submission relay. When checkUploads is
// set, attachments must pass document validation before anything is sent.
func NewApplicationUsecase(
	boardRepo domain.JobBoardRepository,
	validate *validator.Validate,
	secLogger *security.SecurityLogger,
	checkUploads bool,
) domain.ApplicationUsecase {
	return &applicationUsecase{
		boardRepo:    boardRepo,
		validate:     validate,
		secLogger:    secLogger,
		checkUploads: checkUploads,
	}
}

// Submit validates a submission and relays it once to the job board.
func (uc *applicationUsecase) Submit(ctx context.Context, sub *domain.Submission) error {
	// 1. Non-empty form
	if sub == nil || len(sub.Fields) == 0 {
		return apperror.BadRequest(apperror.CodeInvalidRequest, "Request body is empty")
	}

	// 2. Required fields, first missing wins
	form := applicationForm{
		ID:        sub.Value("id"),
		FirstName: sub.Value("first_name"),
		LastName:  sub.Value("last_name"),
		Email:     sub.Value("email"),
	}
	if err := uc.validate.Struct(form); err != nil {
		if field, ok := validation.FirstMissing(err); ok {
			return apperror.MissingField(field)
		}
		return apperror.BadRequest(apperror.CodeInvalidRequest, err.Error())
	}

	// 3. Attachments
	if err := uc.checkAttachments(ctx, sub); err != nil {
		return err
	}

	// 4. Relay
	if err := uc.boardRepo.SubmitApplication(ctx, sub); err != nil {
		msg := err.Error()
		var subErr *domain.SubmissionError
		if !errors.As(err, &subErr) {
			msg = "Application for job '" + sub.JobID().String() + "' failed to submit"
		}
		return apperror.New(http.StatusBadRequest, apperror.CodeMissingFields, msg, err)
	}

	if uc.secLogger != nil {
		uc.secLogger.LogApplicationRelayed(ctx, sub.JobID().String(), form.Email, len(sub.Attachments))
	}
	logger.Log.Info("Application relayed", "job_id", sub.JobID().String(), "attachments", len(sub.Attachments))
	return nil
}

func (uc *applicationUsecase) checkAttachments(ctx context.Context, sub *domain.Submission) error {
	seen := make(map[string]bool, len(sub.Attachments))
	for _, a := range sub.Attachments {
		if !slices.Contains(domain.AllowedAttachments, a.Field) {
			return uc.rejectAttachment(ctx, sub, a, "unexpected file field: "+a.Field)
		}
		if seen[a.Field] {
			return uc.rejectAttachment(ctx, sub, a, "only one file allowed for "+a.Field)
		}
		seen[a.Field] = true

		if !uc.checkUploads {
			continue
		}
		f, err := a.Open()
		if err != nil {
			return apperror.Internal(err)
		}
		result := security.ValidateDocument(a.Filename, f)
		f.Close()
		if !result.Valid {
			return uc.rejectAttachment(ctx, sub, a, a.Field+": "+result.Error)
		}
	}
	return nil
}

func (uc *applicationUsecase) rejectAttachment(ctx context.Context, sub *domain.Submission, a domain.Attachment, reason string) error {
	if uc.secLogger != nil {
		uc.secLogger.LogAttachmentRejected(ctx, sub.JobID().String(), a.Field, a.Filename, reason)
	}
	return apperror.BadRequest(apperror.CodeInvalidAttachment, reason)
}
