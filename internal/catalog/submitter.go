package catalog

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
)

// SubmitterConfig describes where and how records are created remotely.
type SubmitterConfig struct {
	GroupEntity        string
	EntryEntity        string
	MasterCategoryID   string
	MasterCategoryName string
	// CreateEmptyGroups creates groups without entries remotely; otherwise
	// they are recorded as skipped.
	CreateEmptyGroups bool
}

// Submitter creates each group and then its entries under the group's remote
// id. Groups are independent: a failure in one subtree never stops siblings.
// It implements port.Submitter.
type Submitter struct {
	client *Client
	cfg    SubmitterConfig
}

// NewSubmitter creates a Submitter.
func NewSubmitter(client *Client, cfg SubmitterConfig) *Submitter {
	if cfg.GroupEntity == "" {
		cfg.GroupEntity = "categories"
	}
	if cfg.EntryEntity == "" {
		cfg.EntryEntity = "type_category"
	}
	return &Submitter{client: client, cfg: cfg}
}

// Submit sends the record group by group in order. The returned outcome is
// always non-nil once submission has started, even alongside an error. Errors
// are reserved for aborts: *domain.AuthError or cancellation.
func (s *Submitter) Submit(ctx context.Context, record *domain.CatalogRecord) (*domain.SubmissionOutcome, error) {
	if s.cfg.MasterCategoryID == "" {
		return nil, domain.ErrMissingMasterCategory
	}
	if record == nil {
		return nil, domain.ErrNoRecordToSubmit
	}

	outcome := &domain.SubmissionOutcome{Groups: make([]domain.GroupOutcome, 0, len(record.Groups))}
	for i := range record.Groups {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		g := &record.Groups[i]
		gOut, err := s.submitGroup(ctx, g)
		outcome.Groups = append(outcome.Groups, gOut)
		if err != nil {
			logSummary(outcome)
			return outcome, err
		}
	}

	logSummary(outcome)
	return outcome, nil
}

func (s *Submitter) submitGroup(ctx context.Context, g *domain.Group) (domain.GroupOutcome, error) {
	out := domain.GroupOutcome{Name: g.Name}

	if len(g.Entries) == 0 && !s.cfg.CreateEmptyGroups {
		out.Status = domain.SubmissionSkipped
		out.Reason = "no entries"
		logrus.Infof("catalog.Submitter: skipping group %q without entries", g.Name)
		return out, nil
	}

	res, err := s.client.Create(ctx, s.cfg.GroupEntity, s.groupBody(g))
	if err != nil {
		out.Status = domain.SubmissionFailed
		out.Reason = err.Error()
		out.Entries = childrenNotAttempted(g, domain.SubmissionFailed, "parent group was not created")
		logrus.Errorf("catalog.Submitter: failed to create group %q: %v", g.Name, err)
		return out, abortError(err)
	}
	if res.Exists {
		out.Status = domain.SubmissionSkipped
		out.Exists = true
		out.Reason = "already exists: " + res.Message
		out.Entries = childrenNotAttempted(g, domain.SubmissionSkipped, "parent group already exists")
		logrus.Infof("catalog.Submitter: skipped existing group %q", g.Name)
		return out, nil
	}

	out.Status = domain.SubmissionCreated
	out.RemoteID = res.RemoteID
	logrus.Infof("catalog.Submitter: created group %q (id %s)", g.Name, res.RemoteID)

	for j := range g.Entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		e := &g.Entries[j]
		eOut := domain.EntryOutcome{Name: e.Name}

		if out.RemoteID == "" {
			eOut.Status = domain.SubmissionFailed
			eOut.Reason = "parent remote id unavailable"
			out.Entries = append(out.Entries, eOut)
			continue
		}

		res, err := s.client.Create(ctx, s.cfg.EntryEntity, s.entryBody(e, out.RemoteID))
		switch {
		case err != nil:
			eOut.Status = domain.SubmissionFailed
			eOut.Reason = err.Error()
			logrus.Errorf("catalog.Submitter: failed to create entry %q in %q: %v", e.Name, g.Name, err)
			if abort := abortError(err); abort != nil {
				out.Entries = append(out.Entries, eOut)
				return out, abort
			}
		case res.Exists:
			eOut.Status = domain.SubmissionSkipped
			eOut.Reason = "already exists: " + res.Message
		default:
			eOut.Status = domain.SubmissionCreated
			eOut.RemoteID = res.RemoteID
		}
		out.Entries = append(out.Entries, eOut)
	}
	return out, nil
}

func (s *Submitter) groupBody(g *domain.Group) map[string]interface{} {
	description := g.Description
	if description == "" {
		description = "Category for " + g.Name
	}
	return map[string]interface{}{
		"master_category_id":      s.cfg.MasterCategoryID,
		"master_category_name_en": s.cfg.MasterCategoryName,
		"category_name_en":        g.Name,
		"category_name_cn":        g.SecondaryName,
		"category_description":    description,
	}
}

func (s *Submitter) entryBody(e *domain.Entry, parentID string) map[string]interface{} {
	body := map[string]interface{}{
		"category_id":               parentID,
		"type_category_name_en":     e.Name,
		"type_category_name_cn":     e.SecondaryName,
		"type_category_description": e.Description,
	}
	if e.Code != "" {
		body["type_category_code"] = e.Code
	}
	return body
}

func childrenNotAttempted(g *domain.Group, status domain.SubmissionStatus, reason string) []domain.EntryOutcome {
	if len(g.Entries) == 0 {
		return nil
	}
	out := make([]domain.EntryOutcome, len(g.Entries))
	for i := range g.Entries {
		out[i] = domain.EntryOutcome{Name: g.Entries[i].Name, Status: status, Reason: reason}
	}
	return out
}

// abortError returns err when it must stop the whole submission.
func abortError(err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func logSummary(o *domain.SubmissionOutcome) {
	c := o.Counts()
	logrus.Infof("catalog.Submitter: groups %d created, %d skipped, %d failed; entries %d created, %d skipped, %d failed",
		c.GroupsCreated, c.GroupsSkipped, c.GroupsFailed, c.EntriesCreated, c.EntriesSkipped, c.EntriesFailed)
}
