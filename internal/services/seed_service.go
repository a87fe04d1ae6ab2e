package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	model "github.com/callendorph/mturkemu/internal/models"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

// systemUsername owns the built-in qualification types every deployment
// carries.
const systemUsername = "system"

// System qualification type names, matching the well-known ones the
// real marketplace grants to every worker.
const (
	QualNameLocale          = "Worker_Locale"
	QualNamePercentApproved = "Worker_PercentAssignmentsApproved"
	QualNameNumberApproved  = "Worker_NumberHITsApproved"
)

// SeedService provisions accounts together with the system-owned
// qualification state a fresh worker starts with.
type SeedService struct {
	accounts    *AccountService
	quals       *QualService
	accountRepo *repository.AccountRepository
	qualRepo    *repository.QualRepository
}

func NewSeedService(
	accounts *AccountService,
	quals *QualService,
	accountRepo *repository.AccountRepository,
	qualRepo *repository.QualRepository,
) *SeedService {
	return &SeedService{
		accounts:    accounts,
		quals:       quals,
		accountRepo: accountRepo,
		qualRepo:    qualRepo,
	}
}

type SeedParams struct {
	Username string
	Email    string
	Name     string
	Balance  decimal.Decimal
	Country  string
}

// SeedAccount creates the account and grants it the system
// qualifications: locale from the requested country, 100 percent
// approved, zero approved so far. The system owner and its
// qualification types are created on first use.
func (s *SeedService) SeedAccount(
	ctx context.Context,
	p SeedParams,
) (*model.Worker, *model.Requester, *model.Credential, error) {
	system, err := s.systemRequester(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	locale, percent, number, err := s.systemQuals(ctx, system)
	if err != nil {
		return nil, nil, nil, err
	}

	worker, requester, credential, err := s.accounts.CreateAccount(
		ctx, p.Username, p.Email, p.Name, p.Balance)
	if err != nil {
		return nil, nil, nil, err
	}

	country := p.Country
	if country == "" {
		country = "US"
	}
	_, err = s.quals.AssociateLocaleQualification(ctx, system,
		locale.ExternalID, worker.ExternalID, model.Locale{Country: country})
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := s.quals.AssociateQualification(ctx, system,
		percent.ExternalID, worker.ExternalID, 100); err != nil {
		return nil, nil, nil, err
	}
	if _, err := s.quals.AssociateQualification(ctx, system,
		number.ExternalID, worker.ExternalID, 0); err != nil {
		return nil, nil, nil, err
	}

	log.Info("seeded account", "username", p.Username,
		"worker", worker.ExternalID, "requester", requester.ExternalID)
	return worker, requester, credential, nil
}

func (s *SeedService) systemRequester(ctx context.Context) (*model.Requester, error) {
	requester, err := s.accountRepo.FindRequesterByUsername(ctx, systemUsername)
	if err != nil {
		return nil, err
	}
	if requester != nil {
		return requester, nil
	}
	_, requester, _, err = s.accounts.CreateAccount(ctx, systemUsername,
		"", "System", decimal.Zero)
	if err != nil {
		return nil, err
	}
	return requester, nil
}

// systemQuals finds or creates the three built-in qualification types.
func (s *SeedService) systemQuals(
	ctx context.Context,
	system *model.Requester,
) (locale, percent, number *model.Qualification, err error) {
	locale, err = s.ensureQual(ctx, system, QualNameLocale,
		"Location of the worker")
	if err != nil {
		return nil, nil, nil, err
	}
	percent, err = s.ensureQual(ctx, system, QualNamePercentApproved,
		"Percentage of the worker's submitted assignments that were approved")
	if err != nil {
		return nil, nil, nil, err
	}
	number, err = s.ensureQual(ctx, system, QualNameNumberApproved,
		"Number of the worker's assignments that were approved")
	if err != nil {
		return nil, nil, nil, err
	}
	return locale, percent, number, nil
}

func (s *SeedService) ensureQual(
	ctx context.Context,
	system *model.Requester,
	name, description string,
) (*model.Qualification, error) {
	qual, err := s.qualRepo.FindByName(ctx, system.ID, name)
	if err != nil {
		return nil, err
	}
	if qual != nil {
		return qual, nil
	}
	requestable := false
	return s.quals.CreateQualificationType(ctx, system, CreateQualTypeParams{
		Name:        name,
		Description: description,
		Status:      string(model.QualActive),
		Requestable: &requestable,
	})
}
