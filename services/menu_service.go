package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/cache"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
	"gorm.io/gorm"
)

type MenuItemInput struct {
	Name        string
	Description string
	Category    string
	PriceFull   float64
	PriceHalf   *float64
	ImageUrl    string
}

// MenuItemPatch is a partial update. ClearHalf removes the half price.
type MenuItemPatch struct {
	Name        *string
	Description *string
	Category    *string
	PriceFull   *float64
	PriceHalf   *float64
	ClearHalf   bool
	ImageUrl    *string
}

// MenuService owns menu items, categories and their display order.
type MenuService struct {
	db    *gorm.DB
	cache cache.MenuCache
}

// NewMenuService creates a MenuService. menuCache may be nil.
func NewMenuService(db *gorm.DB, menuCache cache.MenuCache) *MenuService {
	return &MenuService{db: db, cache: menuCache}
}

func (s *MenuService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("menu cache invalidation failed")
	}
}

func (s *MenuService) remember(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		utils.ErrorLogger.WithError(err).WithField("key", key).Warn("menu cache write failed")
	}
}

// Categories lists categories in display order.
func (s *MenuService) Categories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if s.cache != nil && s.cache.Get(ctx, cache.KeyCategories, &categories) {
		return categories, nil
	}

	if err := s.db.WithContext(ctx).Order("position ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.remember(ctx, cache.KeyCategories, categories)
	return categories, nil
}

// GroupedMenu returns the public menu as sections in category order. Items whose
// category has no category row come last, grouped by name. Empty categories are omitted.
func (s *MenuService) GroupedMenu(ctx context.Context) ([]models.MenuSection, error) {
	sections := []models.MenuSection{}
	if s.cache != nil && s.cache.Get(ctx, cache.KeyMenuGrouped, &sections) {
		return sections, nil
	}

	db := s.db.WithContext(ctx)

	var categories []models.Category
	if err := db.Order("position ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var items []models.MenuItem
	if err := db.Order("position ASC, name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}

	byCategory := make(map[string][]models.MenuItem)
	for _, item := range items {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	for _, cat := range categories {
		if list, ok := byCategory[cat.Name]; ok {
			sections = append(sections, models.MenuSection{Name: cat.Name, Position: cat.Position, Items: list})
			delete(byCategory, cat.Name)
		}
	}

	orphans := make([]string, 0, len(byCategory))
	for name := range byCategory {
		orphans = append(orphans, name)
	}
	sort.Strings(orphans)
	for i, name := range orphans {
		sections = append(sections, models.MenuSection{
			Name:     name,
			Position: len(categories) + i,
			Items:    byCategory[name],
		})
	}

	s.remember(ctx, cache.KeyMenuGrouped, sections)
	return sections, nil
}

// FlatMenu lists every item ordered by category position then item position.
func (s *MenuService) FlatMenu(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	if s.cache != nil && s.cache.Get(ctx, cache.KeyMenuFlat, &items) {
		return items, nil
	}

	sections, err := s.GroupedMenu(ctx)
	if err != nil {
		return nil, err
	}
	for _, section := range sections {
		items = append(items, section.Items...)
	}

	s.remember(ctx, cache.KeyMenuFlat, items)
	return items, nil
}

func (s *MenuService) findItem(db *gorm.DB, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := db.First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Menu item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find menu item %d: %w", id, err)
	}
	return &item, nil
}

func categoryName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.DefaultCategory
	}
	return name
}

// validPrice rejects NaN and infinities, which the JSON encoder cannot render.
func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validatePrices(full float64, half *float64) error {
	if !validPrice(full) {
		return invalidf("Full price must be a number greater than zero")
	}
	if half != nil && !validPrice(*half) {
		return invalidf("Half price must be a number greater than zero")
	}
	return nil
}

func nameTaken(db *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&models.MenuItem{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check menu item name: %w", err)
	}
	return count > 0, nil
}

// CreateItem adds an item at the end of its category, creating the category if needed.
func (s *MenuService) CreateItem(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("Name is required")
	}
	if err := validatePrices(in.PriceFull, in.PriceHalf); err != nil {
		return nil, err
	}

	item := models.MenuItem{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       models.Price{Full: in.PriceFull, Half: in.PriceHalf},
		ImageUrl:    strings.TrimSpace(in.ImageUrl),
		Category:    categoryName(in.Category),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return conflictf("Menu item %q already exists", name)
		}
		if _, err := ensureCategory(tx, item.Category); err != nil {
			return err
		}
		if item.Position, err = nextItemPosition(tx, item.Category); err != nil {
			return err
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("create menu item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	utils.InfoLogger.WithFields(logrus.Fields{"item_id": item.ID, "category": item.Category}).Info("menu item created")
	return &item, nil
}

// UpdateItem applies a partial update. Moving an item to another category appends it there.
func (s *MenuService) UpdateItem(ctx context.Context, id uint, patch MenuItemPatch) (*models.MenuItem, error) {
	var item *models.MenuItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if item, err = s.findItem(tx, id); err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return invalidf("Name must not be empty")
			}
			taken, err := nameTaken(tx, name, item.ID)
			if err != nil {
				return err
			}
			if taken {
				return conflictf("Menu item %q already exists", name)
			}
			item.Name = name
		}
		if patch.Description != nil {
			item.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.ImageUrl != nil {
			item.ImageUrl = strings.TrimSpace(*patch.ImageUrl)
		}
		if patch.PriceFull != nil {
			item.Price.Full = *patch.PriceFull
		}
		if patch.ClearHalf {
			item.Price.Half = nil
		} else if patch.PriceHalf != nil {
			half := *patch.PriceHalf
			item.Price.Half = &half
		}
		if err := validatePrices(item.Price.Full, item.Price.Half); err != nil {
			return err
		}

		if patch.Category != nil {
			target := categoryName(*patch.Category)
			if target != item.Category {
				if _, err := ensureCategory(tx, target); err != nil {
					return err
				}
				if item.Position, err = nextItemPosition(tx, target); err != nil {
					return err
				}
				item.Category = target
			}
		}

		// Save writes every column, so a cleared half price becomes NULL.
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("update menu item %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return item, nil
}

func (s *MenuService) DeleteItem(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	item, err := s.findItem(db, id)
	if err != nil {
		return err
	}
	if err := db.Delete(item).Error; err != nil {
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}

	s.invalidate(ctx)
	utils.InfoLogger.WithField("item_id", id).Info("menu item deleted")
	return nil
}

// ReorderItems sets position=index for every id stored under category. Ids that
// belong to another category are left untouched. It returns how many items moved.
func (s *MenuService) ReorderItems(ctx context.Context, category string, orderedIDs []uint) (int64, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return 0, invalidf("Category is required")
	}
	if len(orderedIDs) == 0 {
		return 0, invalidf("orderedIds must not be empty")
	}

	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			res := tx.Model(&models.MenuItem{}).
				Where("id = ? AND category = ?", id, category).
				Update("position", i)
			if res.Error != nil {
				return fmt.Errorf("reorder item %d: %w", id, res.Error)
			}
			updated += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx)
	utils.InfoLogger.WithFields(logrus.Fields{"category": category, "updated": updated}).Info("menu items reordered")
	return updated, nil
}

// ReorderCategories sets position=index for each name, creating unknown categories.
func (s *MenuService) ReorderCategories(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return invalidf("orderedCategoryNames must not be empty")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, raw := range names {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}

			var cat models.Category
			err := tx.Where("name = ?", name).First(&cat).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				cat = models.Category{Name: name, Position: i}
				if err := tx.Create(&cat).Error; err != nil {
					return fmt.Errorf("create category %q: %w", name, err)
				}
			case err != nil:
				return fmt.Errorf("find category %q: %w", name, err)
			default:
				if err := tx.Model(&cat).Update("position", i).Error; err != nil {
					return fmt.Errorf("reorder category %q: %w", name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	utils.InfoLogger.WithField("count", len(names)).Info("categories reordered")
	return nil
}

// ensureCategory returns the named category, creating it after the last one.
func ensureCategory(tx *gorm.DB, name string) (*models.Category, error) {
	var cat models.Category
	err := tx.Where("name = ?", name).First(&cat).Error
	if err == nil {
		return &cat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}

	var last sql.NullInt64
	if err := tx.Model(&models.Category{}).Select("MAX(position)").Row().Scan(&last); err != nil {
		return nil, fmt.Errorf("last category position: %w", err)
	}
	cat = models.Category{Name: name}
	if last.Valid {
		cat.Position = int(last.Int64) + 1
	}
	if err := tx.Create(&cat).Error; err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return &cat, nil
}

// nextItemPosition is one past the highest position in category, or 0 when empty.
func nextItemPosition(tx *gorm.DB, category string) (int, error) {
	var last sql.NullInt64
	err := tx.Model(&models.MenuItem{}).
		Where("category = ?", category).
		Select("MAX(position)").
		Row().Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last item position in %q: %w", category, err)
	}
	if !last.Valid {
		return 0, nil
	}
	return int(last.Int64) + 1, nil
}
