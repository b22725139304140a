package access

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
)

// Outcome вид решения шлюза.
type Outcome int

const (
	// OutcomeAllow операция разрешена.
	OutcomeAllow Outcome = iota
	// OutcomeDeny операция запрещена, причина в Decision.Reason.
	OutcomeDeny
	// OutcomeNeedsOrganization пользователь состоит в нескольких организациях
	// и должен явно выбрать одну из Decision.Candidates.
	OutcomeNeedsOrganization
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	case OutcomeNeedsOrganization:
		return "organization_required"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Reason причина отказа.
type Reason string

const (
	ReasonOrganizationNotSpecified Reason = "organization_not_specified"
	ReasonSponsorRequired          Reason = "sponsor_required"
	ReasonInsufficientRole         Reason = "insufficient_role"
	ReasonProRequired              Reason = "pro_required"
)

// Message текст причины для ответа клиенту.
func (r Reason) Message() string {
	switch r {
	case ReasonOrganizationNotSpecified:
		return "organization not specified"
	case ReasonSponsorRequired:
		return "sponsor required"
	case ReasonInsufficientRole:
		return "insufficient role"
	case ReasonProRequired:
		return "pro required"
	}
	return string(r)
}

// Policy требования защищённой операции.
type Policy struct {
	RequiredRoles         []models.Role // пусто: роль не проверяется
	RequirePro            bool
	AllowAccountantAlways bool
	SponsorOnly           bool
}

// Request участники проверки. Organization равна nil, если организация не определена выше по цепочке.
type Request struct {
	User         *models.User
	Organization *models.Organization
}

// Decision результат проверки.
type Decision struct {
	Outcome    Outcome
	Reason     Reason                   // только для OutcomeDeny
	Candidates []models.OrganizationRef // только для OutcomeNeedsOrganization
	Role       models.Role              // роль, если она вычислялась и пользователь состоит в организации
	// AccountantBypass выставляется, когда разрешение дано правилом «бухгалтер всегда».
	AccountantBypass bool
}

// Allowed сообщает, можно ли выполнять операцию.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// RoleSource определяет роль пользователя в организации.
type RoleSource interface {
	RoleOf(ctx context.Context, userUID, organizationID string) (models.Role, bool, error)
}

// ProChecker вычисляет Pro-доступ.
type ProChecker interface {
	HasProAccess(ctx context.Context, user *models.User, org *models.Organization, feature models.Feature) (bool, error)
}

// Gate объединяет проверки организации, спонсорства, роли и Pro-доступа.
type Gate struct {
	roles RoleSource
	pro   ProChecker
	repo  MembershipRepository
	log   *slog.Logger
	obs   Observer
}

// NewGate создает Gate.
func NewGate(roles RoleSource, pro ProChecker, repo MembershipRepository, log *slog.Logger, obs Observer) *Gate {
	return &Gate{
		roles: roles,
		pro:   pro,
		repo:  repo,
		log:   log,
		obs:   observerOrNop(obs),
	}
}

// Check проверяет запрос против политики. Проверки идут по порядку, первая неудача
// возвращается как решение. Ошибка возвращается только при сбое хранилища
// и не логируется здесь: её логирует граница запроса.
//
// Правило AllowAccountantAlways применяется после проверок роли и Pro-доступа
// и не отменяет их отказ.
func (g *Gate) Check(ctx context.Context, req Request, p Policy) (Decision, error) {
	const op = "access.Gate.Check"

	d, err := g.check(ctx, req, p)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	g.obs.ObserveDecision(d.Outcome.String(), string(d.Reason))
	attrs := []any{
		slog.String("op", op),
		sl.Subject(req.User.UUID, orgID(req.Organization)),
		slog.String("outcome", d.Outcome.String()),
	}
	if d.Outcome == OutcomeAllow {
		attrs = append(attrs, slog.Bool("accountant_bypass", d.AccountantBypass))
		g.log.Info("access granted", attrs...)
	} else {
		attrs = append(attrs, slog.String("reason", string(d.Reason)))
		g.log.Warn("access denied", attrs...)
	}
	return d, nil
}

func (g *Gate) check(ctx context.Context, req Request, p Policy) (Decision, error) {
	user, org := req.User, req.Organization

	if org == nil {
		orgs, err := g.repo.ListUserOrganizations(ctx, user.UUID)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if len(orgs) > 1 {
			return Decision{Outcome: OutcomeNeedsOrganization, Candidates: orgs}, nil
		}
		return deny(ReasonOrganizationNotSpecified), nil
	}

	if p.SponsorOnly && !user.IsSponsor {
		return deny(ReasonSponsorRequired), nil
	}

	var (
		role     models.Role
		isMember bool
	)
	if len(p.RequiredRoles) > 0 || p.AllowAccountantAlways {
		var err error
		role, isMember, err = g.roles.RoleOf(ctx, user.UUID, org.ID)
		if err != nil {
			return Decision{}, err
		}
	}

	if len(p.RequiredRoles) > 0 && (!isMember || !slices.Contains(p.RequiredRoles, role)) {
		return Decision{Outcome: OutcomeDeny, Reason: ReasonInsufficientRole, Role: role}, nil
	}

	if p.RequirePro {
		ok, err := g.pro.HasProAccess(ctx, user, org, "")
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return Decision{Outcome: OutcomeDeny, Reason: ReasonProRequired, Role: role}, nil
		}
	}

	if p.AllowAccountantAlways && isMember && role == models.RoleAccountant {
		return Decision{Outcome: OutcomeAllow, Role: role, AccountantBypass: true}, nil
	}
	return Decision{Outcome: OutcomeAllow, Role: role}, nil
}

func deny(reason Reason) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason}
}
