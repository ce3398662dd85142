package template

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"assistant-gateway/internal/models"
)

// ErrCategoryInUse is returned when deleting a category that still has
// templates referencing it.
var ErrCategoryInUse = errors.New("category has templates referencing it")

// TemplateFilter narrows the candidate query. Nil/zero fields are ignored.
type TemplateFilter struct {
	CategoryID *uint
	Kind       string
	Active     *bool
	Search     string
}

// Store wraps template and category persistence. Construct with NewStore;
// there is no package-level database handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Categories ---

func (s *Store) CreateCategory(category *models.MessageCategory) error {
	return s.db.Create(category).Error
}

func (s *Store) ListCategories() ([]models.MessageCategory, error) {
	var categories []models.MessageCategory
	err := s.db.Order("name asc").Find(&categories).Error
	return categories, err
}

func (s *Store) GetCategory(id uint) (*models.MessageCategory, error) {
	var category models.MessageCategory
	if err := s.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) UpdateCategory(category *models.MessageCategory) error {
	return s.db.Save(category).Error
}

// DeleteCategory refuses to delete a category while templates reference it.
func (s *Store) DeleteCategory(id uint) error {
	var count int64
	if err := s.db.Model(&models.MessageTemplate{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d templates", ErrCategoryInUse, count)
	}
	return s.db.Delete(&models.MessageCategory{}, id).Error
}

// --- Templates ---

func (s *Store) CreateTemplate(template *models.MessageTemplate) error {
	return s.db.Create(template).Error
}

// ListTemplates returns templates matching the filter, ordered by priority
// desc then recency desc. The selector re-sorts by score regardless.
func (s *Store) ListTemplates(filter TemplateFilter) ([]models.MessageTemplate, error) {
	query := s.db.Model(&models.MessageTemplate{})

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ? OR tags LIKE ?", like, like, like)
	}

	var templates []models.MessageTemplate
	err := query.Order("priority desc").Order("created_at desc").Find(&templates).Error
	return templates, err
}

func (s *Store) GetTemplate(id uint) (*models.MessageTemplate, error) {
	var template models.MessageTemplate
	if err := s.db.First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (s *Store) UpdateTemplate(template *models.MessageTemplate) error {
	return s.db.Save(template).Error
}

func (s *Store) DeleteTemplate(id uint) error {
	return s.db.Delete(&models.MessageTemplate{}, id).Error
}

// --- Usage logging ---

// LogUsage appends a usage log entry and bumps the template's usage counter.
// The increment runs as a single UPDATE expression so concurrent calls never
// lose updates. A missing template skips the increment but still records the
// attempt; a logging failure must never block message delivery, so callers
// may ignore the returned error.
func (s *Store) LogUsage(templateID uint, lineID, context string, success bool) (*models.TemplateUsageLog, error) {
	entry := &models.TemplateUsageLog{
		TemplateID: templateID,
		LineID:     lineID,
		Context:    context,
		Success:    success,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create usage log: %w", err)
	}

	now := time.Now()
	result := s.db.Model(&models.MessageTemplate{}).
		Where("id = ?", templateID).
		UpdateColumns(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + ?", 1),
			"last_used":   now,
		})
	if result.Error != nil {
		return entry, fmt.Errorf("increment usage count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		logrus.WithField("template_id", templateID).Warn("Usage logged for unknown template")
	}

	return entry, nil
}

// UsageLogs returns the audit trail for one template, newest first.
func (s *Store) UsageLogs(templateID uint) ([]models.TemplateUsageLog, error) {
	var logs []models.TemplateUsageLog
	err := s.db.Where("template_id = ?", templateID).Order("created_at desc").Find(&logs).Error
	return logs, err
}
