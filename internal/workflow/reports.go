package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/aggregate"
	"github.com/mysettle/mysettle/pkg/ledger"
)

// EvidenceItem is one capture in a driver's submission.
type EvidenceItem struct {
	Type    ledger.EvidenceType `json:"type"`
	Tag     ledger.EvidenceTag  `json:"tag"`
	Title   string              `json:"title,omitempty"` // Defaults to the tag
	Content string              `json:"content"`         // Base64, data URI or URL
}

// SubmitRequest is a driver's submission: evidence plus an optional draft.
type SubmitRequest struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Draft     *ledger.Draft  `json:"draft,omitempty"`
	Evidences []EvidenceItem `json:"evidences"`
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Status     string               `json:"status"`
	Session    ledger.SessionStatus `json:"session_status"`
	Submitters int64                `json:"submitters"`
}

// ReportMeta summarises a session's report for status screens.
type ReportMeta struct {
	SessionID     string               `json:"session_id"`
	Status        ledger.SessionStatus `json:"status"`
	ReportID      int64                `json:"report_id,omitempty"`
	PoliceSigned  bool                 `json:"police_signed"`
	DriverASigned bool                 `json:"driver_a_signed"`
	DriverBSigned bool                 `json:"driver_b_signed"`
	EvidenceCount int                  `json:"evidence_count"`
	Submitters    []string             `json:"submitters"`
	MeetLink      string               `json:"meet_link,omitempty"`
	HasDetails    bool                 `json:"has_details"`
}

// SubmitReport records a driver's evidence and draft. Once both drivers
// have submitted, the session moves to PENDING_POLICE and preliminary
// police details are aggregated from the two drafts.
func (s *Service) SubmitReport(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	session, err := s.getSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(session, req.UserID) {
		return nil, ErrNotParticipant
	}
	if session.Status != ledger.StatusHandshake && session.Status != ledger.StatusPendingPolice {
		return nil, fmt.Errorf("%w: cannot submit while session is %s", ErrInvalidTransition, session.Status)
	}

	items := make([]*ledger.Evidence, 0, len(req.Evidences))
	for _, in := range req.Evidences {
		item := &ledger.Evidence{
			UploaderID: req.UserID,
			Type:       in.Type,
			Tag:        in.Tag,
			Title:      in.Title,
			Content:    in.Content,
		}
		if item.Title == "" {
			item.Title = string(in.Tag)
		}
		if err := item.Validate(); err != nil {
			return nil, badRequest(err)
		}
		items = append(items, item)
	}

	report, err := s.client.EnsureReport(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.ReportID = report.ID
	}

	if req.Draft != nil {
		draft := *req.Draft
		draft.SessionID = session.ID
		draft.UserID = req.UserID
		if err := s.client.PutDraft(ctx, &draft); err != nil {
			return nil, err
		}
	}

	submitters, err := s.client.AppendEvidence(ctx, session.ID, req.UserID, items)
	if err != nil {
		return nil, err
	}

	s.logger.Info("report submitted",
		zap.String("session_id", session.ID),
		zap.String("user_id", req.UserID),
		zap.Int("evidence", len(items)),
		zap.Int64("submitters", submitters))

	if submitters < 2 {
		s.publish(ctx, session.ID, ledger.EventReportSubmitted, map[string]any{"user_id": req.UserID})
		return &SubmitResult{Status: "SUBMITTED", Session: session.Status, Submitters: submitters}, nil
	}

	session, err = s.updateSession(ctx, session.ID, func(sess *ledger.Session) error {
		if sess.Status != ledger.StatusHandshake {
			return ledger.ErrUnchanged
		}
		return advance(sess, ledger.StatusPendingPolice)
	})
	if err != nil {
		return nil, err
	}

	if err := s.ensurePoliceDetails(ctx, session); err != nil {
		s.logger.Error("failed to aggregate police details", zap.String("session_id", session.ID), zap.Error(err))
	}

	s.publish(ctx, session.ID, ledger.EventAllReportsSubmitted, map[string]any{"user_id": req.UserID})
	return &SubmitResult{Status: "SUBMITTED", Session: session.Status, Submitters: submitters}, nil
}

// ensurePoliceDetails builds the preliminary police form from both drafts
// unless an officer has already stored one.
func (s *Service) ensurePoliceDetails(ctx context.Context, session *ledger.Session) error {
	if _, err := s.client.GetPoliceDetails(ctx, session.ID); err == nil {
		return nil
	} else if !ledger.IsNotFound(err) {
		return err
	}

	draftA, err := s.lookupDraft(ctx, session.ID, session.DriverAID)
	if err != nil {
		return err
	}
	draftB, err := s.lookupDraft(ctx, session.ID, session.DriverBID)
	if err != nil {
		return err
	}
	userA, err := s.lookupUser(ctx, session.DriverAID)
	if err != nil {
		return err
	}
	userB, err := s.lookupUser(ctx, session.DriverBID)
	if err != nil {
		return err
	}

	details := aggregate.PoliceDetailsFromDrafts(session.ID, draftA, draftB, userA, userB, s.now())
	if err := s.client.PutPoliceDetails(ctx, details); err != nil {
		return err
	}
	s.logger.Info("aggregated police details", zap.String("session_id", session.ID), zap.String("report_no", details.ReportNo))
	return nil
}

// lookupDraft returns nil when the driver never saved a draft.
func (s *Service) lookupDraft(ctx context.Context, sessionID, userID string) (*ledger.Draft, error) {
	if userID == "" {
		return nil, nil
	}
	draft, err := s.client.GetDraft(ctx, sessionID, userID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return draft, nil
}

// SignOutcome is returned by the signing operations.
type SignOutcome struct {
	Status  string               `json:"status"`
	Session ledger.SessionStatus `json:"session_status"`
	Closed  bool                 `json:"closed"`
}

// DriverSign stores a driver's signature on the report. The signature that
// completes the set of three closes the case.
func (s *Service) DriverSign(ctx context.Context, sessionID, userID, signature string) (*SignOutcome, error) {
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
	if !isParticipant(session, userID) {
		return nil, ErrNotParticipant
	}
	if session.Status == ledger.StatusCompleted {
		return nil, fmt.Errorf("%w: case is already %s", ErrInvalidTransition, session.Status)
	}

	report, err := s.client.UpdateReport(ctx, sessionID, func(r *ledger.Report) error {
		if r.FullySigned() {
			return fmt.Errorf("%w: report is already fully signed", ErrInvalidTransition)
		}
		if userID == session.DriverAID {
			r.DriverASignature = signature
		} else {
			r.DriverBSignature = signature
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("driver signed", zap.String("session_id", sessionID), zap.String("user_id", userID))

	if !report.FullySigned() {
		s.publish(ctx, sessionID, ledger.EventUserSigned, map[string]any{"user_id": userID})
		return &SignOutcome{Status: "SIGNED", Session: session.Status}, nil
	}
	return s.closeCase(ctx, sessionID)
}

// closeCase completes a session whose stored report is fully signed.
// The police status change may not have landed yet when a driver's
// signature completes the set, so PENDING_POLICE and MEETING_STARTED close
// too. CASE_CLOSED is published only by the call that closes the case.
func (s *Service) closeCase(ctx context.Context, sessionID string) (*SignOutcome, error) {
	report, err := s.getReport(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var closed bool
	session, err := s.updateSession(ctx, sessionID, func(sess *ledger.Session) error {
		closed = false
		if !report.FullySigned() || sess.Status == ledger.StatusCompleted {
			return ledger.ErrUnchanged
		}
		switch sess.Status {
		case ledger.StatusPendingPolice, ledger.StatusMeetingStarted:
			if err := advance(sess, ledger.StatusPoliceSigned); err != nil {
				return err
			}
		}
		if err := advance(sess, ledger.StatusCompleted); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closed {
		s.logger.Info("case closed", zap.String("session_id", sessionID))
		s.publish(ctx, sessionID, ledger.EventCaseClosed, map[string]any{"final_report": FinalReportPath(sessionID)})
	}
	return &SignOutcome{Status: "SIGNED", Session: session.Status, Closed: session.Status == ledger.StatusCompleted}, nil
}

// FinalReportPath is the download path of a closed case's police report.
func FinalReportPath(sessionID string) string {
	return "/police/reports/" + sessionID + "/download/polis_repot"
}

// ReportMeta returns the session status with the report's signature flags
// and evidence count. A session nobody has submitted to yet has no report ID.
func (s *Service) ReportMeta(ctx context.Context, sessionID string) (*ReportMeta, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	meta := &ReportMeta{SessionID: session.ID, Status: session.Status, MeetLink: session.MeetLink}

	report, err := s.client.GetReport(ctx, sessionID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}
	if report != nil {
		meta.ReportID = report.ID
		meta.PoliceSigned = report.PoliceSignature != ""
		meta.DriverASigned = report.DriverASignature != ""
		meta.DriverBSigned = report.DriverBSignature != ""
	}

	evidence, err := s.client.ListEvidence(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	meta.EvidenceCount = len(evidence)

	if meta.Submitters, err = s.client.Submitters(ctx, sessionID); err != nil {
		return nil, err
	}

	if _, err := s.client.GetPoliceDetails(ctx, sessionID); err == nil {
		meta.HasDetails = true
	} else if !ledger.IsNotFound(err) {
		return nil, err
	}

	return meta, nil
}

// getReport loads a report, mapping a missing key to ErrReportNotFound.
func (s *Service) getReport(ctx context.Context, sessionID string) (*ledger.Report, error) {
	report, err := s.client.GetReport(ctx, sessionID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}
