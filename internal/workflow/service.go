// Package workflow runs the accident case lifecycle: pairing two drivers by
// OTP, collecting their submissions, the police review meeting and the three
// signatures that close a case.
//
// Every state change is written through ledger's optimistic transactions and
// then announced on the session's event channel. Event delivery is best
// effort; clients that miss an event recover through ReconnectSession.
package workflow

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/documents"
	"github.com/mysettle/mysettle/pkg/ledger"
)

// Demo profile values given to users on first login.
const (
	demoIC       = "900101-14-1234"
	demoCarModel = "Myvi"
	demoPolicy   = "AXA-123-456"
)

// maxOTPAttempts bounds how many fresh codes CreateSession draws when the
// previous one is held by another live session.
const maxOTPAttempts = 8

// Options tunes the service. Zero values fall back to the defaults below.
type Options struct {
	OTPTTL      time.Duration // How long a join code resolves, default 24h
	JoinWindow  time.Duration // How long driver B may join after creation, 0 = no limit
	MeetBaseURL string        // Prefix of generated meeting links
	OutputDir   string        // Where GenerateDocuments writes PDFs
}

// Service implements the case operations on top of a ledger client.
type Service struct {
	client   *ledger.Client
	renderer *documents.Renderer
	opts     Options
	logger   *zap.Logger

	random io.Reader
	now    func() time.Time
}

// NewService creates a workflow service. A nil logger disables logging.
func NewService(client *ledger.Client, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OTPTTL == 0 {
		opts.OTPTTL = 24 * time.Hour
	}
	if opts.MeetBaseURL == "" {
		opts.MeetBaseURL = "https://meet.google.com"
	}
	opts.MeetBaseURL = strings.TrimRight(opts.MeetBaseURL, "/")
	if opts.OutputDir == "" {
		opts.OutputDir = "generated_reports"
	}

	return &Service{
		client:   client,
		renderer: documents.NewRenderer(),
		opts:     opts,
		logger:   logger.Named("workflow"),
		random:   rand.Reader,
		now:      time.Now,
	}
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// ProfilePatch carries the optional profile fields a driver fills in before
// the police form can be completed. Empty fields are left untouched.
type ProfilePatch struct {
	Address       string `json:"address"`
	PhoneNumber   string `json:"phone_number"`
	Job           string `json:"job"`
	LicenseNumber string `json:"license_number"`
}

// Login returns the user, creating a demo profile on first login.
// asPolice marks the account as a police officer; an existing account is
// promoted but never demoted.
func (s *Service) Login(ctx context.Context, userID string, asPolice bool) (*ledger.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrBadRequest)
	}

	user, err := s.client.GetUser(ctx, userID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}

	if user != nil {
		if !asPolice || user.IsPolice {
			return user, nil
		}
		user.IsPolice = true
	} else {
		user = &ledger.User{
			ID:              userID,
			Name:            "User " + userID,
			ICNo:            demoIC,
			CarPlate:        "W" + strings.ToUpper(userID) + "123",
			CarModel:        demoCarModel,
			InsurancePolicy: demoPolicy,
			IsPolice:        asPolice,
		}
		s.logger.Info("created demo profile", zap.String("user_id", userID), zap.Bool("police", asPolice))
	}

	if err := s.client.PutUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile sets the non-empty fields of patch on an existing user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*ledger.User, error) {
	user, err := s.client.GetUser(ctx, userID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&user.Address, patch.Address)
	set(&user.PhoneNumber, patch.PhoneNumber)
	set(&user.Job, patch.Job)
	set(&user.LicenseNumber, patch.LicenseNumber)

	if err := s.client.PutUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// publish announces an event. Failures are logged, not returned: the state
// change it describes has already been committed.
func (s *Service) publish(ctx context.Context, sessionID, eventType string, data map[string]any) {
	ev := &ledger.Event{Type: eventType, SessionID: sessionID, Data: data}
	if err := s.client.PublishEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("session_id", sessionID),
			zap.String("event", eventType),
			zap.Error(err))
		return
	}
	s.logger.Debug("published event", zap.String("session_id", sessionID), zap.String("event", eventType))
}

// getSession loads a session, mapping a missing key to ErrSessionNotFound.
func (s *Service) getSession(ctx context.Context, sessionID string) (*ledger.Session, error) {
	session, err := s.client.GetSession(ctx, sessionID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// updateSession wraps ledger.UpdateSession with the same not-found mapping.
func (s *Service) updateSession(ctx context.Context, sessionID string, mutate func(*ledger.Session) error) (*ledger.Session, error) {
	session, err := s.client.UpdateSession(ctx, sessionID, mutate)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// lookupUser returns nil for unknown users.
func (s *Service) lookupUser(ctx context.Context, userID string) (*ledger.User, error) {
	if userID == "" {
		return nil, nil
	}
	user, err := s.client.GetUser(ctx, userID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func isParticipant(session *ledger.Session, userID string) bool {
	return userID != "" && (userID == session.DriverAID || userID == session.DriverBID)
}

// badRequest classifies a validation failure from a lower layer.
func badRequest(err error) error {
	if err == nil || errors.Is(err, ErrBadRequest) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}
