package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/ports/outbound"
)

const defaultMenuName = "Main Menu"

// RestaurantRepository implements the restaurant repository interface using GORM
type RestaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository creates a new restaurant repository
func NewRestaurantRepository(db *gorm.DB) outbound.RestaurantRepository {
	return &RestaurantRepository{db: db}
}

// Create persists a new restaurant
func (r *RestaurantRepository) Create(ctx context.Context, restaurant *menu.Restaurant) error {
	return session(ctx, r.db).Create(RestaurantToModel(restaurant)).Error
}

// FindByID loads one restaurant
func (r *RestaurantRepository) FindByID(ctx context.Context, id uuid.UUID) (*menu.Restaurant, error) {
	var model RestaurantModel
	err := session(ctx, r.db).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, menu.ErrRestaurantNotFound
		}
		return nil, err
	}
	return RestaurantFromModel(&model), nil
}

// FindAll lists all restaurants by name
func (r *RestaurantRepository) FindAll(ctx context.Context) ([]*menu.Restaurant, error) {
	var models []RestaurantModel
	if err := session(ctx, r.db).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	restaurants := make([]*menu.Restaurant, 0, len(models))
	for i := range models {
		restaurants = append(restaurants, RestaurantFromModel(&models[i]))
	}
	return restaurants, nil
}

// MenuRepository implements the menu repository interface using GORM
type MenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db *gorm.DB) outbound.MenuRepository {
	return &MenuRepository{db: db}
}

// Create persists a new menu
func (r *MenuRepository) Create(ctx context.Context, m *menu.Menu) error {
	return session(ctx, r.db).Create(MenuToModel(m)).Error
}

// EnsurePrimaryMenu returns the restaurant's first active menu, creating a
// default one when none exists
func (r *MenuRepository) EnsurePrimaryMenu(ctx context.Context, restaurantID uuid.UUID) (*menu.Menu, error) {
	db := session(ctx, r.db)

	var model MenuModel
	err := db.
		Where("restaurant_id = ? AND active = ?", restaurantID, true).
		Order("created_at ASC").
		First(&model).Error
	if err == nil {
		return MenuFromModel(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	primary, err := menu.NewMenu(restaurantID, defaultMenuName, "")
	if err != nil {
		return nil, err
	}
	if err := db.Create(MenuToModel(primary)).Error; err != nil {
		return nil, err
	}
	return primary, nil
}

// Sections lists a menu's sections ordered by position with unpositioned
// sections last, then by creation time
func (r *MenuRepository) Sections(ctx context.Context, menuID uuid.UUID) ([]*menu.MenuSection, error) {
	var models []MenuSectionModel
	err := session(ctx, r.db).
		Where("menu_id = ?", menuID).
		Order("position IS NULL, position ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	sections := make([]*menu.MenuSection, 0, len(models))
	for i := range models {
		sections = append(sections, SectionFromModel(&models[i]))
	}
	return sections, nil
}

// GetOrCreateSection resolves a section by case-insensitive name, creating
// it at the next free position when missing
func (r *MenuRepository) GetOrCreateSection(ctx context.Context, menuID uuid.UUID, name string) (*menu.MenuSection, error) {
	db := session(ctx, r.db)
	normalized := menu.NormalizeSectionName(name)

	var model MenuSectionModel
	err := db.
		Where("menu_id = ? AND LOWER(name) = LOWER(?)", menuID, normalized).
		First(&model).Error
	if err == nil {
		return SectionFromModel(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	position, err := r.nextPosition(db, menuID)
	if err != nil {
		return nil, err
	}
	section := menu.NewMenuSection(menuID, normalized, &position)
	if err := db.Create(SectionToModel(section)).Error; err != nil {
		return nil, err
	}
	return section, nil
}

// EnsureArchiveSection returns the menu's pinned archive section, creating
// it when missing
func (r *MenuRepository) EnsureArchiveSection(ctx context.Context, menuID uuid.UUID) (*menu.MenuSection, error) {
	db := session(ctx, r.db)

	var model MenuSectionModel
	err := db.
		Where("menu_id = ? AND LOWER(name) = LOWER(?)", menuID, menu.ArchiveSectionName).
		First(&model).Error
	if err == nil {
		return SectionFromModel(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	section := menu.NewArchiveSection(menuID)
	if err := db.Create(SectionToModel(section)).Error; err != nil {
		return nil, err
	}
	return section, nil
}

// UpdateSection saves section changes. The archive section is immutable.
func (r *MenuRepository) UpdateSection(ctx context.Context, s *menu.MenuSection) error {
	db := session(ctx, r.db)

	var current MenuSectionModel
	err := db.First(&current, "id = ?", s.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return menu.ErrSectionNotFound
		}
		return err
	}
	if menu.SectionNamesEqual(current.Name, menu.ArchiveSectionName) {
		return menu.ErrArchiveSectionImmutable
	}
	return db.Save(SectionToModel(s)).Error
}

// DeleteSection removes a section after moving its recipes to the menu's
// archive section
func (r *MenuRepository) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	db := session(ctx, r.db)

	var model MenuSectionModel
	err := db.First(&model, "id = ?", sectionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return menu.ErrSectionNotFound
		}
		return err
	}
	if menu.SectionNamesEqual(model.Name, menu.ArchiveSectionName) {
		return menu.ErrArchiveSectionImmutable
	}

	archive, err := r.EnsureArchiveSection(ctx, model.MenuID)
	if err != nil {
		return err
	}
	err = db.Model(&RecipeModel{}).
		Where("section_id = ?", sectionID).
		Update("section_id", archive.ID).Error
	if err != nil {
		return err
	}
	return db.Delete(&MenuSectionModel{}, "id = ?", sectionID).Error
}

func (r *MenuRepository) nextPosition(db *gorm.DB, menuID uuid.UUID) (int, error) {
	var max *int
	err := db.Model(&MenuSectionModel{}).
		Where("menu_id = ? AND position < ?", menuID, menu.ArchiveSectionPosition).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}
