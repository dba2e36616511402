package portalclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/database/models"
	utils "insureportal-backend/shared/utils/auth"
)

const (
	DefaultAutosaveDelay = 5 * time.Second
	DefaultPollInterval  = 10 * time.Second
)

// FormDraft is the editable copy of a form held by an editor.
type FormDraft struct {
	ClientName string
	Email      *string
	Status     models.FormStatus
	Items      []services.ItemInput
}

// DraftFromForm converts a server form into an editable draft, keeping ids
// so the next save updates rather than recreates items and documents.
func DraftFromForm(form *models.Form) FormDraft {
	draft := FormDraft{
		ClientName: form.ClientName,
		Email:      form.Email,
		Status:     form.Status,
		Items:      make([]services.ItemInput, 0, len(form.Items)),
	}
	for _, item := range form.Items {
		in := services.ItemInput{
			ID:                  item.ID.String(),
			InsuranceType:       item.InsuranceType,
			Package:             item.Package,
			RequestType:         item.RequestType,
			CurrentPolicyNumber: item.CurrentPolicyNumber,
			Duration:            item.Duration,
			Price:               item.Price,
			Documents:           make([]services.DocumentInput, 0, len(item.Documents)),
		}
		if item.EffectiveDate != nil {
			date := item.EffectiveDate.UTC().Format(utils.DateLayout)
			in.EffectiveDate = &date
		}
		for _, doc := range item.Documents {
			in.Documents = append(in.Documents, services.DocumentInput{
				ID:      doc.ID.String(),
				Name:    doc.Name,
				FileURL: doc.FileURL,
			})
		}
		draft.Items = append(draft.Items, in)
	}
	return draft
}

// EditorOptions tune an EditorSession
type EditorOptions struct {
	// AutosaveDelay is the idle time after the last edit before saving
	AutosaveDelay time.Duration
	// PollInterval is how often a clean editor checks for newer server state
	PollInterval time.Duration
	// OnRefresh is called when a poll or a conflict replaced the draft
	OnRefresh func(form *models.Form)
	// OnError is called when a background save or poll fails
	OnError func(err error)
}

// EditorSession keeps a local draft of one form in sync with the server:
// edits are saved once the editor has been idle for AutosaveDelay, and while
// there are no unsaved edits the form is polled and the draft replaced when
// the server copy is newer. A save rejected as stale reloads the server copy
// and drops the local edits.
type EditorSession struct {
	client *Client
	formID uuid.UUID
	opts   EditorOptions

	mutex     sync.Mutex
	form      *models.Form
	draft     FormDraft
	dirty     bool
	editSeq   uint64
	lastSaved time.Time

	edits chan struct{}
}

// OpenEditor loads the form and starts a clean session for it.
func OpenEditor(ctx context.Context, client *Client, formID uuid.UUID, opts EditorOptions) (*EditorSession, error) {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	form, err := client.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	return &EditorSession{
		client:    client,
		formID:    formID,
		opts:      opts,
		form:      form,
		draft:     DraftFromForm(form),
		lastSaved: form.UpdatedAt,
		edits:     make(chan struct{}, 1),
	}, nil
}

// Form returns the last server copy
func (e *EditorSession) Form() *models.Form {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.form
}

// Draft returns a copy of the local draft
func (e *EditorSession) Draft() FormDraft {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	draft := e.draft
	draft.Items = append([]services.ItemInput(nil), e.draft.Items...)
	return draft
}

// Dirty reports whether there are unsaved edits
func (e *EditorSession) Dirty() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.dirty
}

// Edit applies a change to the draft and restarts the idle timer.
func (e *EditorSession) Edit(change func(*FormDraft)) {
	e.mutex.Lock()
	change(&e.draft)
	e.dirty = true
	e.editSeq++
	e.mutex.Unlock()

	select {
	case e.edits <- struct{}{}:
	default:
	}
}

// Save sends the draft now. It is a no-op when nothing changed.
func (e *EditorSession) Save(ctx context.Context) error {
	e.mutex.Lock()
	if !e.dirty {
		e.mutex.Unlock()
		return nil
	}
	version := e.form.Version
	seq := e.editSeq
	draft := e.draft
	status := draft.Status
	clientName := draft.ClientName
	input := services.UpdateFormInput{
		ClientName: &clientName,
		Email:      draft.Email,
		Status:     &status,
		Version:    &version,
		Items:      cloneItems(draft.Items),
	}
	e.mutex.Unlock()

	form, err := e.client.UpdateForm(ctx, e.formID, input)
	if err != nil {
		if IsConflict(err) {
			if reloadErr := e.reload(ctx); reloadErr != nil {
				return errors.Join(err, reloadErr)
			}
		}
		return err
	}

	e.mutex.Lock()
	e.form = form
	e.lastSaved = form.UpdatedAt
	// Edits made while the request was in flight stay pending, but rows the
	// save created keep their new ids so the next save does not recreate them.
	if e.editSeq == seq {
		e.draft = DraftFromForm(form)
		e.dirty = false
	} else {
		adoptServerIDs(&e.draft, input.Items, form)
	}
	e.mutex.Unlock()
	return nil
}

// cloneItems copies items and their documents so later edits to the draft
// do not reach a request in flight.
func cloneItems(items []services.ItemInput) []services.ItemInput {
	out := make([]services.ItemInput, len(items))
	for i, item := range items {
		out[i] = item
		if item.Documents != nil {
			out[i].Documents = append([]services.DocumentInput{}, item.Documents...)
		}
	}
	return out
}

// adoptServerIDs copies the ids of items and documents created by a save
// into a draft edited while that save was in flight. New items are matched
// by payload position and insurance type, new documents by file URL.
func adoptServerIDs(draft *FormDraft, sent []services.ItemInput, form *models.Form) {
	known := make(map[string]bool)
	for _, in := range sent {
		if in.ID != "" {
			known[in.ID] = true
		}
		for _, doc := range in.Documents {
			if doc.ID != "" {
				known[doc.ID] = true
			}
		}
	}

	var createdItems []models.InsuranceItem
	createdDocs := make(map[string][]uuid.UUID)
	for _, item := range form.Items {
		if !known[item.ID.String()] {
			createdItems = append(createdItems, item)
		}
		for _, doc := range item.Documents {
			if !known[doc.ID.String()] {
				createdDocs[doc.FileURL] = append(createdDocs[doc.FileURL], doc.ID)
			}
		}
	}

	next := 0
	for i, in := range sent {
		if in.ID != "" {
			continue
		}
		if next == len(createdItems) {
			break
		}
		created := createdItems[next]
		next++
		if i < len(draft.Items) && draft.Items[i].ID == "" && draft.Items[i].InsuranceType == in.InsuranceType {
			draft.Items[i].ID = created.ID.String()
		}
	}

	for i := range draft.Items {
		docs := draft.Items[i].Documents
		for j := range docs {
			ids := createdDocs[docs[j].FileURL]
			if docs[j].ID != "" || len(ids) == 0 {
				continue
			}
			docs[j].ID = ids[0].String()
			createdDocs[docs[j].FileURL] = ids[1:]
		}
	}
}

// Submit moves a draft form to Submitted and saves immediately.
func (e *EditorSession) Submit(ctx context.Context) error {
	e.Edit(func(d *FormDraft) {
		if d.Status == models.FormStatusDraft {
			d.Status = models.FormStatusSubmitted
		}
	})
	return e.Save(ctx)
}

// Poll refreshes the draft when there are no local edits and the server copy is newer.
func (e *EditorSession) Poll(ctx context.Context) (bool, error) {
	if e.Dirty() {
		return false, nil
	}
	form, err := e.client.GetForm(ctx, e.formID)
	if err != nil {
		return false, err
	}

	e.mutex.Lock()
	if e.dirty || !form.UpdatedAt.After(e.lastSaved) {
		e.mutex.Unlock()
		return false, nil
	}
	e.form = form
	e.draft = DraftFromForm(form)
	e.lastSaved = form.UpdatedAt
	e.mutex.Unlock()

	if e.opts.OnRefresh != nil {
		e.opts.OnRefresh(form)
	}
	return true, nil
}

func (e *EditorSession) reload(ctx context.Context) error {
	form, err := e.client.GetForm(ctx, e.formID)
	if err != nil {
		return err
	}
	e.mutex.Lock()
	e.form = form
	e.draft = DraftFromForm(form)
	e.lastSaved = form.UpdatedAt
	e.dirty = false
	e.mutex.Unlock()

	if e.opts.OnRefresh != nil {
		e.opts.OnRefresh(form)
	}
	return nil
}

// Run drives autosave and polling until ctx is cancelled. Pending edits are
// saved before it returns.
func (e *EditorSession) Run(ctx context.Context) error {
	autosave := time.NewTimer(e.opts.AutosaveDelay)
	if !autosave.Stop() {
		<-autosave.C
	}
	poll := time.NewTicker(e.opts.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			autosave.Stop()
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Save(flushCtx)
		case <-e.edits:
			if !autosave.Stop() {
				select {
				case <-autosave.C:
				default:
				}
			}
			autosave.Reset(e.opts.AutosaveDelay)
		case <-autosave.C:
			if err := e.Save(ctx); err != nil {
				e.report(err)
			}
		case <-poll.C:
			if _, err := e.Poll(ctx); err != nil {
				e.report(err)
			}
		}
	}
}

func (e *EditorSession) report(err error) {
	if e.opts.OnError != nil {
		e.opts.OnError(err)
	}
}
