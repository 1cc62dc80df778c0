// Package pebble хранит изображения и их записи локально в pebble.
package pebble

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"tg-search-relay/internal/domain"
)

const (
	recordPrefix = "rec:"
	imagePrefix  = "img:"
)

// errNotFound возвращается, если записи с таким ID нет.
var errNotFound = errors.New("image record not found")

// Store реализует ports.ImageIndex: записи сообщений и байты их изображений
// складываются под общим ID, повторная запись заменяет прежний набор изображений.
type Store struct {
	db *pebble.DB
}

// Open открывает хранилище в каталоге path, создавая его при необходимости.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create pebble dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает хранилище.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IndexImage сохраняет запись и все изображения одним батчем.
func (s *Store) IndexImage(ctx context.Context, buffers [][]byte, record domain.IndexRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return fmt.Errorf("image record id is empty")
	}

	meta, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal image record: %w", err)
	}

	prefix := imageKeyPrefix(record.ID)
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return fmt.Errorf("failed to clear previous images: %w", err)
	}
	if err := batch.Set([]byte(recordPrefix+record.ID), meta, nil); err != nil {
		return fmt.Errorf("failed to stage image record: %w", err)
	}
	for n, buf := range buffers {
		if err := batch.Set(imageKey(record.ID, n), buf, nil); err != nil {
			return fmt.Errorf("failed to stage image %d: %w", n, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit images: %w", err)
	}
	return nil
}

// loadRecord возвращает сохраненную запись по ID.
func (s *Store) loadRecord(id string) (domain.IndexRecord, error) {
	v, closer, err := s.db.Get([]byte(recordPrefix + id))
	if errors.Is(err, pebble.ErrNotFound) {
		return domain.IndexRecord{}, errNotFound
	}
	if err != nil {
		return domain.IndexRecord{}, fmt.Errorf("failed to read image record: %w", err)
	}
	defer closer.Close()

	var record domain.IndexRecord
	if err := json.Unmarshal(v, &record); err != nil {
		return domain.IndexRecord{}, fmt.Errorf("failed to decode image record: %w", err)
	}
	return record, nil
}

// loadImages возвращает изображения записи в порядке их передачи в IndexImage.
func (s *Store) loadImages(id string) ([][]byte, error) {
	prefix := imageKeyPrefix(id)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer it.Close()

	var out [][]byte
	for ok := it.First(); ok; ok = it.Next() {
		// значение действительно только до следующего шага итератора
		out = append(out, bytes.Clone(it.Value()))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}
	return out, nil
}

func imageKeyPrefix(id string) []byte {
	return []byte(imagePrefix + id + ":")
}

// imageKey дополняет номер нулями, чтобы лексикографический порядок ключей совпадал с числовым.
func imageKey(id string, n int) []byte {
	return []byte(fmt.Sprintf("%s%s:%06d", imagePrefix, id, n))
}

// prefixEnd возвращает наименьший ключ, больший всех ключей с префиксом.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
