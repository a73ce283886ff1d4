package workflow

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/documents"
	"github.com/mysettle/mysettle/internal/filter"
	"github.com/mysettle/mysettle/internal/vision"
	"github.com/mysettle/mysettle/pkg/ledger"
)

// RenderedDocument is one PDF ready for download.
type RenderedDocument struct {
	Filename string
	Data     []byte
}

// Dashboard lists sessions for the police portal, filtered, sorted and
// paginated by criteria. Returns the page and the number of matching rows.
func (s *Service) Dashboard(ctx context.Context, criteria filter.Criteria) ([]filter.Row, int, error) {
	if err := criteria.Validate(); err != nil {
		return nil, 0, badRequest(err)
	}

	var sessions []*ledger.Session
	var err error
	if len(criteria.Statuses) == 1 {
		sessions, err = s.client.ListSessionsByStatus(ctx, criteria.Statuses[0])
	} else {
		sessions, err = s.client.ListSessions(ctx)
	}
	if err != nil {
		return nil, 0, err
	}

	users := make(map[string]*ledger.User)
	profile := func(id string) (*ledger.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		u, err := s.lookupUser(ctx, id)
		if err != nil {
			return nil, err
		}
		users[id] = u
		return u, nil
	}

	rows := make([]filter.Row, 0, len(sessions))
	for _, session := range sessions {
		row := filter.Row{Session: session}
		if row.DriverA, err = profile(session.DriverAID); err != nil {
			return nil, 0, err
		}
		if row.DriverB, err = profile(session.DriverBID); err != nil {
			return nil, 0, err
		}
		rows = append(rows, row)
	}

	page, total := criteria.Apply(rows)
	return page, total, nil
}

// StartMeeting opens the review meeting for a session and records the
// officer running it. Returns the meeting link.
func (s *Service) StartMeeting(ctx context.Context, sessionID, policeID string) (string, error) {
	if policeID == "" {
		return "", fmt.Errorf("%w: police_id is required", ErrBadRequest)
	}

	link := s.meetLink(sessionID)
	session, err := s.updateSession(ctx, sessionID, func(sess *ledger.Session) error {
		if err := advance(sess, ledger.StatusMeetingStarted); err != nil {
			return err
		}
		sess.MeetLink = link
		sess.PoliceID = policeID
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("meeting started", zap.String("session_id", session.ID), zap.String("police_id", policeID))
	s.publish(ctx, session.ID, ledger.EventMeetingStarted, map[string]any{"link": link})
	return link, nil
}

func (s *Service) meetLink(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s/mock-%s", s.opts.MeetBaseURL, short)
}

// PoliceSign stores the officer's signature and returns the case to the
// drivers for theirs. If both drivers already signed, the case closes.
func (s *Service) PoliceSign(ctx context.Context, sessionID, policeID, signature string) (*SignOutcome, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: signature is required", ErrBadRequest)
	}

	if _, err := s.getReport(ctx, sessionID); err != nil {
		return nil, err
	}
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(session.Status, ledger.StatusPoliceSigned) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.Status, ledger.StatusPoliceSigned)
	}

	report, err := s.client.UpdateReport(ctx, sessionID, func(r *ledger.Report) error {
		r.PoliceSignature = signature
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err = s.updateSession(ctx, sessionID, func(sess *ledger.Session) error {
		// A driver's signature may have closed the case since the check above
		if sess.Status != ledger.StatusCompleted {
			if err := advance(sess, ledger.StatusPoliceSigned); err != nil {
				return err
			}
		} else if sess.PoliceID != "" {
			return ledger.ErrUnchanged
		}
		if sess.PoliceID == "" {
			sess.PoliceID = policeID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("police signed", zap.String("session_id", sessionID), zap.String("police_id", policeID))
	s.publish(ctx, sessionID, ledger.EventPoliceSigned, map[string]any{"status": "SIGNED", "police_id": policeID})

	if report.FullySigned() || session.Status == ledger.StatusCompleted {
		return s.closeCase(ctx, sessionID)
	}
	return &SignOutcome{Status: "SIGNED", Session: session.Status}, nil
}

// ReportDetails returns the stored police form of a session.
func (s *Service) ReportDetails(ctx context.Context, sessionID string) (*ledger.PoliceDetails, error) {
	details, err := s.client.GetPoliceDetails(ctx, sessionID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrDetailsNotFound
		}
		return nil, err
	}
	return details, nil
}

// UpsertPoliceDetails merges the fields present in patch (a JSON object)
// into the session's police form, creating the form if needed.
func (s *Service) UpsertPoliceDetails(ctx context.Context, sessionID string, patch []byte) (*ledger.PoliceDetails, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	details, err := s.client.GetPoliceDetails(ctx, sessionID)
	if err != nil {
		if !ledger.IsNotFound(err) {
			return nil, err
		}
		details = &ledger.PoliceDetails{}
	}

	if len(bytes.TrimSpace(patch)) > 0 {
		if err := details.Merge(patch); err != nil {
			return nil, badRequest(err)
		}
	}
	details.SessionID = sessionID

	if err := s.client.PutPoliceDetails(ctx, details); err != nil {
		return nil, err
	}
	return details, nil
}

// GenerateDocuments writes all three PDFs for a session to the output
// directory and returns their file names.
func (s *Service) GenerateDocuments(ctx context.Context, sessionID string) (map[documents.Kind]string, error) {
	doc, err := s.document(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	names, err := s.renderer.WriteAll(ctx, s.opts.OutputDir, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reports: %w", err)
	}

	s.logger.Info("reports generated", zap.String("session_id", sessionID), zap.String("dir", s.opts.OutputDir))
	return names, nil
}

// RenderDocument renders a single PDF in memory.
func (s *Service) RenderDocument(ctx context.Context, sessionID, kind string) (*RenderedDocument, error) {
	k, err := documents.ParseKind(kind)
	if err != nil {
		return nil, ErrInvalidReportType
	}

	doc, err := s.document(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, k, doc); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", k, err)
	}
	return &RenderedDocument{Filename: k.Filename(doc.Details.ReportNo), Data: buf.Bytes()}, nil
}

// document gathers the police form, signatures and sketch of a session.
func (s *Service) document(ctx context.Context, sessionID string) (*documents.Document, error) {
	details, err := s.ReportDetails(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc := &documents.Document{Details: details}

	session, err := s.client.GetSession(ctx, sessionID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}
	report, err := s.client.GetReport(ctx, sessionID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}

	if session != nil && report != nil {
		if report.DriverASignature != "" {
			doc.ComplainantSignedBy = firstNonEmpty(details.ComplainantName, s.displayName(ctx, session.DriverAID))
		}
		if report.PoliceSignature != "" {
			doc.ReceiverSignedBy = firstNonEmpty(s.displayName(ctx, session.PoliceID), details.ReceiverName)
		}
	}

	evidence, err := s.client.ListEvidence(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc.Sketch = sketch(evidence)
	return doc, nil
}

// displayName is the user's name, or their ID if the profile is missing.
func (s *Service) displayName(ctx context.Context, userID string) string {
	user, err := s.lookupUser(ctx, userID)
	if err != nil || user == nil {
		return userID
	}
	return user.Name
}

// sketch picks the first rough sketch that is an embeddable image.
func sketch(evidence []*ledger.Evidence) *documents.Image {
	for _, item := range evidence {
		if item.Tag != ledger.TagRoughSketch {
			continue
		}
		data, mimeType, err := vision.DecodeImage(item.Content)
		if err != nil {
			continue
		}
		switch mimeType {
		case "image/png":
			return &documents.Image{Data: data, Type: "PNG"}
		case "image/jpeg":
			return &documents.Image{Data: data, Type: "JPG"}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
