package store

import (
	"bytes"
	"context"
	"crypto-oracle-bot/internal/types"
	"encoding/json"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"os"
	"path/filepath"
	"time"
)

// File keeps the whole alert list in one JSON document on disk
type File struct {
	path string
}

// NewFile creates a file backed store, the file does not need to exist
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the document
func (f *File) Path() string {
	return f.path
}

// Load reads every alert, a missing file is an empty store
func (f *File) Load(_ context.Context) ([]types.Alert, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return []types.Alert{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read alerts from %s", f.path)
	}
	return decode(data)
}

// Save replaces the document. The new content is written to a temporary
// file in the same directory and renamed over the old one.
func (f *File) Save(_ context.Context, alerts []types.Alert) error {
	data, err := encode(alerts)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temporary alerts file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write alerts")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not sync alerts")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close alerts file")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "could not chmod alerts file")
	}

	return errors.Wrapf(os.Rename(tmp.Name(), f.path), "could not replace %s", f.path)
}

// record is the on-disk layout of an alert, targetPrice is a JSON number
type record struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Symbol      string          `json:"symbol"`
	CoinName    string          `json:"coinName"`
	TargetPrice json.Number     `json:"targetPrice"`
	Condition   types.Condition `json:"condition"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func encode(alerts []types.Alert) ([]byte, error) {
	records := make([]record, 0, len(alerts))
	for _, a := range alerts {
		records = append(records, record{
			ID:          a.ID,
			UserID:      a.UserID,
			Symbol:      a.Symbol,
			CoinName:    a.CoinName,
			TargetPrice: json.Number(a.TargetPrice.String()),
			Condition:   a.Condition,
			CreatedAt:   a.CreatedAt,
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	return data, errors.Wrap(err, "could not encode alerts")
}

func decode(data []byte) ([]types.Alert, error) {
	alerts := []types.Alert{}
	if len(bytes.TrimSpace(data)) == 0 {
		return alerts, nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "could not decode alerts")
	}
	for _, r := range records {
		target, err := decimal.NewFromString(r.TargetPrice.String())
		if err != nil {
			return nil, errors.Wrapf(err, "alert %s has an invalid target price", r.ID)
		}
		alerts = append(alerts, types.Alert{
			ID:          r.ID,
			UserID:      r.UserID,
			Symbol:      r.Symbol,
			CoinName:    r.CoinName,
			TargetPrice: target,
			Condition:   r.Condition,
			CreatedAt:   r.CreatedAt,
		})
	}
	return alerts, nil
}
