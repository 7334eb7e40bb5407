/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package msgid

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/rulego/soaprt/addressing"
)

// Supported drivers
const (
	MySQL    = "mysql"
	Postgres = "postgres"
)

// DefaultTable 默认表名
const DefaultTable = "wsa_message_ids"

var (
	// ErrUnsupportedDriver 不支持的数据库驱动
	ErrUnsupportedDriver = errors.New("unsupported sql driver")
	// ErrInvalidTable 非法表名
	ErrInvalidTable = errors.New("invalid table name")
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	_ addressing.MessageIDStore = (*SQLStore)(nil)
	_ Purger                    = (*SQLStore)(nil)
)

// SQLConfiguration SQL存储配置
type SQLConfiguration struct {
	// DriverName mysql或postgres
	DriverName string
	// Dsn 数据库连接配置，参考sql.Open参数
	Dsn string
	// PoolSize 连接池大小
	PoolSize int
	// Table 表名，默认wsa_message_ids
	Table string
}

// SQLStore keeps MessageIDs in a table with a primary key on the id and the
// expiry in unix nanoseconds.
//
// SQLStore 基于数据库表的MessageID存储，适用于多实例部署。
type SQLStore struct {
	db      *sql.DB
	driver  string
	table   string
	queries queries
}

type queries struct {
	create string
	revive string
	insert string
	purge  string
}

// NewSQLStore opens the database described by config.
func NewSQLStore(config SQLConfiguration) (*SQLStore, error) {
	if config.DriverName == "" {
		config.DriverName = MySQL
	}
	db, err := sql.Open(config.DriverName, config.Dsn)
	if err != nil {
		return nil, err
	}
	if config.PoolSize > 0 {
		db.SetMaxOpenConns(config.PoolSize)
		db.SetMaxIdleConns(config.PoolSize)
	}
	store, err := NewSQLStoreWithDB(db, config.DriverName, config.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreWithDB uses an open database.
func NewSQLStoreWithDB(db *sql.DB, driver, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	q, err := buildQueries(driver, table)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, driver: driver, table: table, queries: q}, nil
}

func buildQueries(driver, table string) (queries, error) {
	var p func(i int) string
	switch driver {
	case MySQL:
		p = func(int) string { return "?" }
	case Postgres:
		p = func(i int) string { return fmt.Sprintf("$%d", i) }
	default:
		return queries{}, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	return queries{
		create: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (message_id VARCHAR(255) NOT NULL PRIMARY KEY, expires_at BIGINT NOT NULL)", table),
		revive: fmt.Sprintf("UPDATE %s SET expires_at = %s WHERE message_id = %s AND expires_at < %s", table, p(1), p(2), p(3)),
		insert: fmt.Sprintf("INSERT INTO %s (message_id, expires_at) VALUES (%s, %s)", table, p(1), p(2)),
		purge:  fmt.Sprintf("DELETE FROM %s WHERE expires_at < %s", table, p(1)),
	}, nil
}

// CreateTable creates the table when it does not exist.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.queries.create)
	return err
}

// Remember inserts id. An expired row of the same id is taken over.
func (s *SQLStore) Remember(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expires := now.Add(ttl).UnixNano()
	if ttl <= 0 {
		expires = maxExpiry
	}
	res, err := s.db.ExecContext(ctx, s.queries.revive, expires, id, now.UnixNano())
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}
	if _, err = s.db.ExecContext(ctx, s.queries.insert, id, expires); err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// maxExpiry marks ids that never expire.
const maxExpiry = int64(^uint64(0) >> 1)

func (s *SQLStore) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, s.queries.purge, time.Now().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// isDuplicateKey reports a primary key violation of either driver.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
