// Package sqlite persists the execution audit log with Gorm over SQLite.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kuber/internal/instrument"
	"kuber/internal/order"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type executionModel struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TokenID         string         `gorm:"column:token_id;uniqueIndex"`
	SessionID       string         `gorm:"column:session_id;index"`
	Symbol          string         `gorm:"column:symbol"`
	Exchange        string         `gorm:"column:exchange"`
	InstrumentToken string         `gorm:"column:instrument_token"`
	Side            string         `gorm:"column:side"`
	Quantity        int64          `gorm:"column:quantity"`
	OrderType       string         `gorm:"column:order_type"`
	LimitPrice      string         `gorm:"column:limit_price"`
	BrokerOrderID   string         `gorm:"column:broker_order_id"`
	Status          string         `gorm:"column:status"`
	Message         string         `gorm:"column:message"`
	RawResponse     datatypes.JSON `gorm:"column:raw_response"`
	CreatedAt       time.Time      `gorm:"column:created_at;index"`
}

func (executionModel) TableName() string { return "executions" }

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit store: path is empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&executionModel{}); err != nil {
		return nil, fmt.Errorf("audit store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) RecordExecution(ctx context.Context, res order.ExecutionResult) error {
	m := toModel(res)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("audit store: record execution %s: %w", res.TokenID, err)
	}
	return nil
}

func (s *Store) ListExecutions(ctx context.Context, limit int) ([]order.ExecutionResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []executionModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit store: list executions: %w", err)
	}
	out := make([]order.ExecutionResult, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func toModel(res order.ExecutionResult) executionModel {
	m := executionModel{
		TokenID:         res.TokenID,
		SessionID:       res.SessionID,
		Symbol:          res.Draft.Instrument.Symbol,
		Exchange:        res.Draft.Instrument.Exchange,
		InstrumentToken: res.Draft.Instrument.Token,
		Side:            string(res.Draft.Side),
		Quantity:        res.Draft.Quantity,
		OrderType:       string(res.Draft.Type),
		BrokerOrderID:   res.BrokerOrderID,
		Status:          string(res.Status),
		Message:         res.Message,
		CreatedAt:       res.CreatedAt,
	}
	if res.Draft.Type == order.TypeLimit {
		m.LimitPrice = res.Draft.LimitPrice.String()
	}
	if len(res.RawResponse) > 0 {
		m.RawResponse = datatypes.JSON(res.RawResponse)
	}
	return m
}

func fromModel(m executionModel) order.ExecutionResult {
	res := order.ExecutionResult{
		TokenID:   m.TokenID,
		SessionID: m.SessionID,
		Draft: order.Draft{
			Instrument: instrument.Instrument{
				Symbol:   m.Symbol,
				Exchange: m.Exchange,
				Token:    m.InstrumentToken,
			},
			Side:     order.Side(m.Side),
			Quantity: m.Quantity,
			Type:     order.Type(m.OrderType),
		},
		BrokerOrderID: m.BrokerOrderID,
		Status:        order.ExecutionStatus(m.Status),
		Message:       m.Message,
		RawResponse:   []byte(m.RawResponse),
		CreatedAt:     m.CreatedAt,
	}
	if m.LimitPrice != "" {
		if price, err := decimal.NewFromString(m.LimitPrice); err == nil {
			res.Draft.LimitPrice = price
		}
	}
	return res
}
