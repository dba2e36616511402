package services

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/database/models"
	"insureportal-backend/shared/events"
	applog "insureportal-backend/shared/logger"
	utils "insureportal-backend/shared/utils/auth"
	"insureportal-backend/shared/utils/permission"
	"insureportal-backend/shared/utils/query"
)

// DocumentInput is a document as sent by the editor. An empty ID means a new document.
type DocumentInput struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" example:"policy.pdf"`
	FileURL string `json:"fileUrl" example:"/uploads/1718000000000-6f1c.pdf"`
}

// ItemInput is an insurance item as sent by the editor. An empty ID means a
// new item. A nil Documents slice leaves stored documents untouched; an empty
// one removes them all.
type ItemInput struct {
	ID                  string          `json:"id,omitempty"`
	InsuranceType       string          `json:"insuranceType" example:"Household Insurance"`
	Package             string          `json:"package" example:"Basic"`
	RequestType         string          `json:"requestType" example:"New Policy"`
	CurrentPolicyNumber *string         `json:"currentPolicyNumber,omitempty"`
	EffectiveDate       *string         `json:"effectiveDate,omitempty" example:"2025-01-01"`
	Duration            *string         `json:"duration,omitempty" example:"1 year"`
	Price               *string         `json:"price,omitempty" example:"150"`
	Documents           []DocumentInput `json:"documents"`
}

type CreateFormInput struct {
	ClientName string      `json:"clientName" example:"John Doe"`
	Email      *string     `json:"email,omitempty" example:"john@example.com"`
	Items      []ItemInput `json:"items"`
}

// UpdateFormInput is a full or partial form save. Nil fields are left as
// stored; a nil Items slice leaves items untouched. Version must echo the
// version the caller last read.
type UpdateFormInput struct {
	ClientName *string            `json:"clientName,omitempty"`
	Email      *string            `json:"email,omitempty"`
	Status     *models.FormStatus `json:"status,omitempty"`
	Version    *int               `json:"version"`
	Items      []ItemInput        `json:"items"`
}

// FormList is one page of forms plus its pagination metadata
type FormList struct {
	Forms      []models.Form
	Pagination query.PaginationResponse
}

var (
	formFilterFields = map[string]string{
		"status": "status",
	}
	formSortFields = map[string]string{
		"updated_at":  "updated_at",
		"updatedAt":   "updated_at",
		"created_at":  "created_at",
		"createdAt":   "created_at",
		"client_name": "client_name",
		"clientName":  "client_name",
		"status":      "status",
	}
	formSearchFields = []string{"client_name"}
)

// FormService owns the form aggregate: forms, their items and the items' documents.
type FormService struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

func NewFormService(db *gorm.DB, publisher events.Publisher) *FormService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &FormService{db: db, publisher: publisher, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the active forms the caller may see, most recently updated first.
func (s *FormService) List(ctx context.Context, id *utils.Identity, params query.FilterParams) (*FormList, error) {
	if id == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if status, ok := params.Filters["status"]; ok && !models.FormStatus(status).Valid() {
		return nil, apperrors.InvalidInput("invalid status %q", status)
	}

	base := s.db.WithContext(ctx).Model(&models.Form{}).Where("organization_id = ?", id.OrganizationID)
	if !id.IsAdmin() {
		base = base.Where("created_by_id = ?", id.UserID)
	}
	base = query.ApplyFilters(base, params.Filters, formFilterFields)
	base = query.ApplySearch(base, params.Search, formSearchFields)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch forms", err)
	}

	listQuery := query.ApplySort(base.Session(&gorm.Session{}), params.Sort, formSortFields)
	listQuery = query.ApplyPagination(listQuery, params.Page, params.Limit)

	forms := make([]models.Form, 0)
	if err := listQuery.Preload("Items", orderItems).Find(&forms).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch forms", err)
	}

	return &FormList{
		Forms:      forms,
		Pagination: query.BuildPaginationResponse(params.Page, params.Limit, total),
	}, nil
}

// Get loads a form with items and documents after tenant and ownership checks.
func (s *FormService) Get(ctx context.Context, id *utils.Identity, formID uuid.UUID) (*models.Form, error) {
	form, err := loadForm(s.db.WithContext(ctx), formID)
	if err != nil {
		return nil, err
	}
	if err := permission.CheckFormAccess(id, form, permission.ActionRead); err != nil {
		return nil, err
	}
	return form, nil
}

// Create stores a new draft form with its nested items and documents.
func (s *FormService) Create(ctx context.Context, id *utils.Identity, in CreateFormInput) (*models.Form, error) {
	if id == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}

	clientName := strings.TrimSpace(in.ClientName)
	if clientName == "" {
		return nil, apperrors.InvalidInput("Client Name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if email == nil && id.Email != "" {
		callerEmail := id.Email
		email = &callerEmail
	}

	canPrice := permission.CanSetPrice(id)
	now := s.now()
	items := make([]models.InsuranceItem, 0, len(in.Items))
	for i, itemIn := range in.Items {
		if itemIn.ID != "" {
			return nil, apperrors.InvalidInput("items[%d]: new items must not carry an id", i)
		}
		item, _, err := buildItem(itemIn, canPrice)
		if err != nil {
			return nil, err
		}
		docs, err := buildDocuments(itemIn.Documents, now)
		if err != nil {
			return nil, err
		}
		item.CreatedAt = sequenced(now, i)
		item.Documents = docs
		items = append(items, item)
	}

	form := models.Form{
		ClientName:     clientName,
		Email:          email,
		Status:         models.FormStatusDraft,
		Version:        1,
		OrganizationID: id.OrganizationID,
		CreatedByID:    id.UserID,
		Items:          items,
	}

	var created *models.Form
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&form).Error; err != nil {
			return err
		}
		loaded, err := loadForm(tx, form.ID)
		if err != nil {
			return err
		}
		created = loaded
		return nil
	})
	if err != nil {
		return nil, asInternal("Failed to create form", err)
	}

	applog.Info().Str("form_id", created.ID.String()).Str("user_id", id.UserID.String()).
		Int("items", len(created.Items)).Msg("📝 Form created")
	s.publish(ctx, events.FormCreated, created, id)
	return created, nil
}

// Update saves the form and reconciles its items in one transaction. A stale
// version fails with Conflict and nothing is written.
func (s *FormService) Update(ctx context.Context, id *utils.Identity, formID uuid.UUID, in UpdateFormInput) (*models.Form, error) {
	if id == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if in.Version == nil {
		return nil, apperrors.InvalidInput("version is required")
	}

	var updated *models.Form
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var form models.Form
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Form not found")
			}
			return err
		}
		if err := permission.CheckFormAccess(id, &form, permission.ActionUpdate); err != nil {
			return err
		}
		if form.Version != *in.Version {
			return staleVersion(form.Version, *in.Version)
		}

		status, err := permission.ResolveStatus(id, form.Status, in.Status)
		if err != nil {
			return err
		}

		now := s.now()
		changes := map[string]interface{}{
			"status":     status,
			"version":    form.Version + 1,
			"updated_at": now,
		}
		if in.ClientName != nil {
			clientName := strings.TrimSpace(*in.ClientName)
			if clientName == "" {
				return apperrors.InvalidInput("Client Name is required")
			}
			changes["client_name"] = clientName
		}
		if in.Email != nil {
			email, err := normalizeEmail(in.Email)
			if err != nil {
				return err
			}
			changes["email"] = email
		}

		result := tx.Model(&models.Form{}).
			Where("id = ? AND version = ?", form.ID, form.Version).
			Updates(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return staleVersion(form.Version, *in.Version)
		}

		if in.Items != nil {
			if err := reconcileItems(tx, form.ID, in.Items, permission.CanSetPrice(id), now); err != nil {
				return err
			}
		}

		loaded, err := loadForm(tx, form.ID)
		if err != nil {
			return err
		}
		updated = loaded
		return nil
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindConflict) {
			applog.Warn().Str("form_id", formID.String()).Str("user_id", id.UserID.String()).
				Int("version", *in.Version).Msg("⚠️ Rejected stale form update")
		}
		return nil, asInternal("Failed to update form", err)
	}

	s.publish(ctx, events.FormUpdated, updated, id)
	return updated, nil
}

// Delete soft deletes the form. Clients may only delete their own drafts.
func (s *FormService) Delete(ctx context.Context, id *utils.Identity, formID uuid.UUID) error {
	if id == nil {
		return apperrors.Unauthenticated("authentication required")
	}

	var form models.Form
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Form not found")
			}
			return err
		}
		if err := permission.CheckFormAccess(id, &form, permission.ActionDelete); err != nil {
			return err
		}
		return tx.Delete(&form).Error
	})
	if err != nil {
		return asInternal("Failed to delete form", err)
	}

	applog.Info().Str("form_id", form.ID.String()).Str("user_id", id.UserID.String()).Msg("🗑️ Form deleted")
	s.publish(ctx, events.FormDeleted, &form, id)
	return nil
}

// StatusCounts returns how many active forms of the caller's organization
// are in each status. Every status is present in the result.
func (s *FormService) StatusCounts(ctx context.Context, id *utils.Identity) (map[models.FormStatus]int64, error) {
	if id == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}

	var rows []struct {
		Status models.FormStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Form{}).
		Select("status, COUNT(*) AS count").
		Where("organization_id = ?", id.OrganizationID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal("Failed to count forms", err)
	}

	counts := make(map[models.FormStatus]int64, len(models.FormStatuses))
	for _, status := range models.FormStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// LoadForExport loads a form with its items and organization for the summary document.
func (s *FormService) LoadForExport(ctx context.Context, id *utils.Identity, formID uuid.UUID) (*models.Form, error) {
	var form models.Form
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("Items", orderItems).
		First(&form, "id = ?", formID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Form not found")
		}
		return nil, apperrors.Internal("Failed to generate PDF", err)
	}
	if err := permission.CheckFormAccess(id, &form, permission.ActionExport); err != nil {
		return nil, err
	}
	return &form, nil
}

func (s *FormService) publish(ctx context.Context, eventType events.Type, form *models.Form, id *utils.Identity) {
	event := events.Event{
		Type:           eventType,
		FormID:         form.ID,
		OrganizationID: form.OrganizationID,
		CreatedByID:    form.CreatedByID,
		Status:         string(form.Status),
		Version:        form.Version,
		UpdatedAt:      form.UpdatedAt,
		ActorID:        id.UserID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		applog.Warn().Err(err).Str("form_id", form.ID.String()).Str("event", string(eventType)).
			Msg("Failed to publish form event")
	}
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func orderDocuments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func loadForm(db *gorm.DB, formID uuid.UUID) (*models.Form, error) {
	var form models.Form
	err := db.Preload("Items", orderItems).
		Preload("Items.Documents", orderDocuments).
		First(&form, "id = ?", formID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Form not found")
		}
		return nil, apperrors.Internal("Failed to fetch form", err)
	}
	return &form, nil
}

// reconcileItems makes the stored items of a form match the payload. Items
// missing from it are deleted with their documents. Items with an id are
// updated and items without one are inserted.
func reconcileItems(tx *gorm.DB, formID uuid.UUID, inputs []ItemInput, canPrice bool, now time.Time) error {
	var stored []models.InsuranceItem
	if err := tx.Where("form_id = ?", formID).Find(&stored).Error; err != nil {
		return err
	}
	storedIDs := make(map[uuid.UUID]bool, len(stored))
	for _, item := range stored {
		storedIDs[item.ID] = true
	}

	incoming := make([]uuid.UUID, len(inputs))
	kept := make(map[uuid.UUID]bool, len(inputs))
	for i, in := range inputs {
		if in.ID == "" {
			continue
		}
		itemID, err := uuid.Parse(in.ID)
		if err != nil {
			return apperrors.InvalidInput("items[%d]: invalid id %q", i, in.ID)
		}
		if !storedIDs[itemID] {
			return apperrors.InvalidInput("items[%d]: insurance item %s does not belong to this form", i, itemID)
		}
		if kept[itemID] {
			return apperrors.InvalidInput("items[%d]: insurance item %s appears twice", i, itemID)
		}
		kept[itemID] = true
		incoming[i] = itemID
	}

	var removed []uuid.UUID
	for _, item := range stored {
		if !kept[item.ID] {
			removed = append(removed, item.ID)
		}
	}
	if len(removed) > 0 {
		if err := tx.Where("insurance_item_id IN ?", removed).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", removed).Delete(&models.InsuranceItem{}).Error; err != nil {
			return err
		}
	}

	for i, in := range inputs {
		item, priceSet, err := buildItem(in, canPrice)
		if err != nil {
			return err
		}

		if incoming[i] == uuid.Nil {
			docs, err := buildDocuments(in.Documents, now)
			if err != nil {
				return err
			}
			item.FormID = formID
			item.CreatedAt = sequenced(now, i)
			item.Documents = docs
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			continue
		}

		changes := map[string]interface{}{
			"insurance_type":        item.InsuranceType,
			"package":               item.Package,
			"request_type":          item.RequestType,
			"current_policy_number": item.CurrentPolicyNumber,
			"effective_date":        item.EffectiveDate,
			"duration":              item.Duration,
		}
		if priceSet {
			changes["price"] = item.Price
		}
		if err := tx.Model(&models.InsuranceItem{}).Where("id = ?", incoming[i]).Updates(changes).Error; err != nil {
			return err
		}

		if in.Documents != nil {
			if err := reconcileDocuments(tx, incoming[i], in.Documents, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileDocuments diffs the stored documents of an item against the payload by id.
func reconcileDocuments(tx *gorm.DB, itemID uuid.UUID, inputs []DocumentInput, now time.Time) error {
	var stored []models.Document
	if err := tx.Where("insurance_item_id = ?", itemID).Find(&stored).Error; err != nil {
		return err
	}
	storedIDs := make(map[uuid.UUID]bool, len(stored))
	for _, doc := range stored {
		storedIDs[doc.ID] = true
	}

	incoming := make([]uuid.UUID, len(inputs))
	kept := make(map[uuid.UUID]bool, len(inputs))
	for i, in := range inputs {
		if in.ID == "" {
			continue
		}
		docID, err := uuid.Parse(in.ID)
		if err != nil {
			return apperrors.InvalidInput("documents[%d]: invalid id %q", i, in.ID)
		}
		if !storedIDs[docID] {
			return apperrors.InvalidInput("documents[%d]: document %s does not belong to this item", i, docID)
		}
		kept[docID] = true
		incoming[i] = docID
	}

	var removed []uuid.UUID
	for _, doc := range stored {
		if !kept[doc.ID] {
			removed = append(removed, doc.ID)
		}
	}
	if len(removed) > 0 {
		if err := tx.Where("id IN ?", removed).Delete(&models.Document{}).Error; err != nil {
			return err
		}
	}

	for i, in := range inputs {
		doc, err := buildDocument(i, in)
		if err != nil {
			return err
		}
		if incoming[i] == uuid.Nil {
			doc.InsuranceItemID = itemID
			doc.CreatedAt = sequenced(now, i)
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			continue
		}
		err = tx.Model(&models.Document{}).Where("id = ?", incoming[i]).
			Updates(map[string]interface{}{"name": doc.Name, "file_url": doc.FileURL}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// buildItem validates an item payload. priceSet reports whether the stored
// price should be overwritten: only price writers may, and a nil price
// keeps the stored value while an empty one clears it.
func buildItem(in ItemInput, canPrice bool) (models.InsuranceItem, bool, error) {
	item := models.InsuranceItem{
		InsuranceType: strings.TrimSpace(in.InsuranceType),
		Package:       strings.TrimSpace(in.Package),
		RequestType:   strings.TrimSpace(in.RequestType),
	}
	if !models.IsInsuranceType(item.InsuranceType) {
		return item, false, apperrors.InvalidInput("unknown insurance type %q", in.InsuranceType)
	}
	if item.Package == "" {
		item.Package = models.Packages[0]
	}
	if !models.IsPackage(item.Package) {
		return item, false, apperrors.InvalidInput("unknown package %q", in.Package)
	}
	if item.RequestType == "" {
		item.RequestType = models.RequestTypeNewPolicy
	}
	if !models.IsRequestType(item.RequestType) {
		return item, false, apperrors.InvalidInput("unknown request type %q", in.RequestType)
	}

	if item.RequestType == models.RequestTypeUpgrade {
		item.CurrentPolicyNumber = optionalString(in.CurrentPolicyNumber)
	}
	item.Duration = optionalString(in.Duration)

	if date := optionalString(in.EffectiveDate); date != nil {
		effective, err := parseDate(*date)
		if err != nil {
			return item, false, apperrors.InvalidInput("invalid effective date %q", *date)
		}
		item.EffectiveDate = &effective
	}

	if !canPrice || in.Price == nil {
		return item, false, nil
	}
	price := optionalString(in.Price)
	if price != nil {
		if _, ok := parsePrice(*price); !ok {
			return item, false, apperrors.InvalidInput("invalid price %q", *price)
		}
	}
	item.Price = price
	return item, true, nil
}

func buildDocuments(inputs []DocumentInput, now time.Time) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(inputs))
	for i, in := range inputs {
		if in.ID != "" {
			return nil, apperrors.InvalidInput("documents[%d]: new documents must not carry an id", i)
		}
		doc, err := buildDocument(i, in)
		if err != nil {
			return nil, err
		}
		doc.CreatedAt = sequenced(now, i)
		docs = append(docs, doc)
	}
	return docs, nil
}

func buildDocument(i int, in DocumentInput) (models.Document, error) {
	fileURL := strings.TrimSpace(in.FileURL)
	if fileURL == "" {
		return models.Document{}, apperrors.InvalidInput("documents[%d]: fileUrl is required", i)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = path.Base(fileURL)
	}
	return models.Document{Name: name, FileURL: fileURL}, nil
}

// sequenced spaces rows inserted together so created_at keeps payload order.
func sequenced(base time.Time, i int) time.Time {
	return base.Add(time.Duration(i) * time.Microsecond)
}

func normalizeEmail(email *string) (*string, error) {
	value := optionalString(email)
	if value == nil {
		return nil, nil
	}
	if err := utils.ValidateEmail(*value); err != nil {
		return nil, apperrors.InvalidInput("Invalid email")
	}
	return value, nil
}

func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(utils.DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func staleVersion(stored, sent int) error {
	return apperrors.Conflict("Form was modified by someone else (version %d, you sent %d). Reload and try again", stored, sent)
}

// asInternal keeps typed errors and wraps anything else as Internal.
func asInternal(message string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(message, err)
}
