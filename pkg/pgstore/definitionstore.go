/*
Copyright 2026 The catalogd Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// findPageSize mirrors definitionstore.MemoryStore's page size.
const findPageSize = 50

// DefinitionStore is a Postgres-backed definitionstore.Store.
type DefinitionStore struct {
	db *sqlx.DB
}

// NewDefinitionStore wraps db.
func NewDefinitionStore(db *sqlx.DB) *DefinitionStore {
	return &DefinitionStore{db: db}
}

func (s *DefinitionStore) Get(ctx context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM definitions WHERE coord_key = $1`, rc.EntityCoordinates.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *DefinitionStore) List(ctx context.Context, prefix coordinates.EntityCoordinates) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT coordinates FROM definitions WHERE coord_key LIKE $1 ORDER BY coordinates`,
		strings.ToLower(prefix.Key())+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *DefinitionStore) Store(ctx context.Context, rc coordinates.ResultCoordinates, def model.Document) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO definitions (coord_key, type, provider, name, coordinates, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (coord_key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		rc.EntityCoordinates.Key(), rc.Type, rc.Provider, rc.Name, rc.EntityCoordinates.String(), raw)
	return err
}

func (s *DefinitionStore) Delete(ctx context.Context, rc coordinates.ResultCoordinates) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM definitions WHERE coord_key = $1`, rc.EntityCoordinates.Key())
	return err
}

func (s *DefinitionStore) Find(ctx context.Context, query definitionstore.Query, continuationToken string) (definitionstore.FindResult, error) {
	offset := 0
	if continuationToken != "" {
		if n, err := strconv.Atoi(continuationToken); err == nil {
			offset = n
		}
	}

	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	argN := 1
	addClause := func(col, val string) {
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, argN))
		args = append(args, "%"+val+"%")
		argN++
	}
	if query.Type != "" {
		clauses = append(clauses, fmt.Sprintf("type = $%d", argN))
		args = append(args, query.Type)
		argN++
	}
	if query.Provider != "" {
		clauses = append(clauses, fmt.Sprintf("provider = $%d", argN))
		args = append(args, query.Provider)
		argN++
	}
	if query.Name != "" {
		addClause("name", query.Name)
	}

	sqlQuery := "SELECT coordinates FROM definitions"
	if len(clauses) > 0 {
		sqlQuery += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlQuery += fmt.Sprintf(" ORDER BY coordinates LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, findPageSize+1, offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return definitionstore.FindResult{}, err
	}
	defer rows.Close()

	matches := make([]string, 0, findPageSize+1)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return definitionstore.FindResult{}, err
		}
		matches = append(matches, c)
	}
	if err := rows.Err(); err != nil {
		return definitionstore.FindResult{}, err
	}

	result := definitionstore.FindResult{}
	if len(matches) > findPageSize {
		result.Coordinates = matches[:findPageSize]
		result.ContinuationToken = strconv.Itoa(offset + findPageSize)
	} else {
		result.Coordinates = matches
	}
	return result, nil
}
