package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/qrcode"
	"github.com/mysettle/mysettle/pkg/ledger"
)

// Role is a participant's seat in a session.
type Role string

const (
	RoleDriverA Role = "DRIVER_A"
	RoleDriverB Role = "DRIVER_B"
)

// CreatedSession is returned to driver A after creating a session.
type CreatedSession struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
	QRImage   string `json:"qr_image"` // PNG data URI of the join link
}

// JoinResult is returned to driver B after pairing.
type JoinResult struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Reconnect tells a returning participant where their session stands.
type Reconnect struct {
	SessionID string               `json:"session_id"`
	Status    ledger.SessionStatus `json:"status"`
	Role      Role                 `json:"role"`
	PartnerID string               `json:"partner_id"`
	MeetLink  string               `json:"meet_link"`
}

// CreateSession opens a new session owned by driver A, with a fresh join code
// and a QR image encoding the join link.
func (s *Service) CreateSession(ctx context.Context, userID string) (*CreatedSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrBadRequest)
	}

	session := &ledger.Session{
		ID:        uuid.NewString(),
		DriverAID: userID,
		Status:    ledger.StatusCreated,
	}

	var err error
	for attempt := 0; attempt < maxOTPAttempts; attempt++ {
		session.OTP, err = qrcode.OTP(s.random)
		if err != nil {
			return nil, err
		}
		session.CreatedAtMs = s.now().UnixMilli()
		session.UpdatedAtMs = session.CreatedAtMs

		err = s.client.CreateSession(ctx, session, s.opts.OTPTTL)
		if !errors.Is(err, ledger.ErrOTPTaken) {
			break
		}
		s.logger.Debug("otp collision, drawing another", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.DataURI(qrcode.JoinURL(session.OTP))
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("driver_a", userID))
	return &CreatedSession{SessionID: session.ID, OTP: session.OTP, QRImage: qr}, nil
}

// JoinSession pairs driver B with the session holding otp and moves it to
// HANDSHAKE. A driver already seated as B may join again without effect.
func (s *Service) JoinSession(ctx context.Context, otp, userID string) (*JoinResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrBadRequest)
	}

	found, err := s.client.FindSessionByOTP(ctx, otp)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	joined := false
	session, err := s.updateSession(ctx, found.ID, func(sess *ledger.Session) error {
		joined = false
		switch {
		case sess.DriverBID == userID:
			return ledger.ErrUnchanged
		case sess.DriverAID == userID:
			return ErrSelfJoin
		case sess.DriverBID != "":
			return ErrSessionFull
		}

		if s.opts.JoinWindow > 0 {
			created := time.UnixMilli(sess.CreatedAtMs)
			if s.now().Sub(created) > s.opts.JoinWindow {
				return ErrJoinWindowExpired
			}
		}

		if err := advance(sess, ledger.StatusHandshake); err != nil {
			return err
		}
		sess.DriverBID = userID
		joined = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if joined {
		s.logger.Info("driver joined", zap.String("session_id", session.ID), zap.String("driver_b", userID))
		s.publish(ctx, session.ID, ledger.EventHandshakeComplete, map[string]any{"driver_b": userID})
	}

	return &JoinResult{SessionID: session.ID, Status: "JOINED"}, nil
}

// ReconnectSession lets a participant resume a session by its join code.
func (s *Service) ReconnectSession(ctx context.Context, otp, userID string) (*Reconnect, error) {
	session, err := s.client.FindSessionByOTP(ctx, otp)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	result := &Reconnect{SessionID: session.ID, Status: session.Status, MeetLink: session.MeetLink}
	switch userID {
	case "":
		return nil, ErrNotParticipant
	case session.DriverAID:
		result.Role = RoleDriverA
		result.PartnerID = session.DriverBID
	case session.DriverBID:
		result.Role = RoleDriverB
		result.PartnerID = session.DriverAID
	default:
		return nil, ErrNotParticipant
	}
	return result, nil
}

// GetSession returns a session by ID.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*ledger.Session, error) {
	return s.getSession(ctx, sessionID)
}

// Subscribe opens a subscription to a session's events.
func (s *Service) Subscribe(ctx context.Context, sessionID string) (*ledger.EventSubscription, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.client.SubscribeSessionEvents(ctx, sessionID)
}
