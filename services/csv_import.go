package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/metrics"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
	"gorm.io/gorm"
)

const (
	colItem      = "item"
	colCategory  = "category"
	colItemPrice = "item price"
	colHalf      = "half"
	colFull      = "full"
)

// ImportResult counts rows that created or updated a menu item.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type importRow struct {
	line     int
	name     string
	category string
	full     float64
	half     *float64
}

// parsePrice accepts a finite decimal number above zero. Anything else reports false.
func parsePrice(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !validPrice(v) {
		return 0, false
	}
	return v, true
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// ImportCSV upserts menu items by name from a CSV with the columns
// Item, Category, Item Price, Half, Full. Rows without a name or a usable
// full price are skipped and the import carries on with the next row.
func (s *MenuService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalidf("CSV file is empty")
	}
	if err != nil {
		return nil, invalidf("Could not read CSV header: %v", err)
	}

	cols := headerIndex(header)
	if _, ok := cols[colItem]; !ok {
		return nil, invalidf("CSV must have an %q column", "Item")
	}
	_, hasFull := cols[colFull]
	_, hasItemPrice := cols[colItemPrice]
	if !hasFull && !hasItemPrice {
		return nil, invalidf("CSV must have a %q or %q column", "Full", "Item Price")
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &ImportResult{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"row": line, "error": err}).Warn("csv import: unreadable row skipped")
			s.skip(result)
			continue
		}

		row := importRow{
			line:     line,
			name:     field(record, colItem),
			category: categoryName(field(record, colCategory)),
		}
		if row.name == "" {
			s.skip(result)
			continue
		}

		rawFull := field(record, colFull)
		if rawFull == "" {
			rawFull = field(record, colItemPrice)
		}
		full, ok := parsePrice(rawFull)
		if !ok {
			utils.ErrorLogger.WithFields(logrus.Fields{"row": line, "item": row.name}).Warn("csv import: missing or invalid full price, row skipped")
			s.skip(result)
			continue
		}
		row.full = full
		if half, ok := parsePrice(field(record, colHalf)); ok {
			row.half = &half
		}

		created, err := s.upsertRow(ctx, row)
		if err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"row": line, "item": row.name, "error": err}).Error("csv import: row failed")
			s.skip(result)
			continue
		}
		if created {
			result.Created++
			metrics.MenuImportRows.WithLabelValues("created").Inc()
		} else {
			result.Updated++
			metrics.MenuImportRows.WithLabelValues("updated").Inc()
		}
	}

	s.invalidate(ctx)
	utils.InfoLogger.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}).Info("csv menu import finished")
	return result, nil
}

func (s *MenuService) skip(result *ImportResult) {
	result.Skipped++
	metrics.MenuImportRows.WithLabelValues("skipped").Inc()
}

func (s *MenuService) upsertRow(ctx context.Context, row importRow) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureCategory(tx, row.category); err != nil {
			return err
		}

		var item models.MenuItem
		err := tx.Where("name = ?", row.name).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.MenuItem{
				Name:     row.name,
				Category: row.category,
				Price:    models.Price{Full: row.full, Half: row.half},
			}
			if item.Position, err = nextItemPosition(tx, row.category); err != nil {
				return err
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create %q: %w", row.name, err)
			}
			created = true
			return nil
		case err != nil:
			return fmt.Errorf("find %q: %w", row.name, err)
		}

		if item.Category != row.category {
			if item.Position, err = nextItemPosition(tx, row.category); err != nil {
				return err
			}
			item.Category = row.category
		}
		item.Price = models.Price{Full: row.full, Half: row.half}
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("update %q: %w", row.name, err)
		}
		return nil
	})
	return created, err
}
