package store

import (
	"context"
	"database/sql"

	"emperror.dev/errors"
	"github.com/bwmarrin/lit"
	_ "github.com/go-sql-driver/mysql"
)

const (
	tblGuilds = "CREATE TABLE IF NOT EXISTS `guilds`( `id` varchar(20) NOT NULL, `record` longtext CHARACTER SET utf8mb4 NOT NULL CHECK (json_valid(`record`)), PRIMARY KEY (`id`)) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"

	qrySelect     = "SELECT record FROM guilds WHERE id=?"
	qrySelectLock = "SELECT record FROM guilds WHERE id=? FOR UPDATE"
	qryEnsure     = "INSERT IGNORE INTO guilds (id, record) VALUES(?, ?)"
	qryUpdate     = "UPDATE guilds SET record=? WHERE id=?"
	qryUpsert     = "INSERT INTO guilds (id, record) VALUES(?, ?) ON DUPLICATE KEY UPDATE record=VALUES(record)"
)

// MySQL keeps one JSON record per guild in the guilds table.
// Update holds the row lock for the whole transaction.
type MySQL struct {
	db *sql.DB
}

// NewMySQL opens a connection with the given driver and data source name and initializes the table
func NewMySQL(driver, dsn string) (*MySQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WrapIf(err, "open db connection")
	}

	m, err := NewMySQLWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return m, nil
}

// NewMySQLWithDB wraps an existing connection
func NewMySQLWithDB(db *sql.DB) (*MySQL, error) {
	m := &MySQL{db: db}
	if err := m.execQuery(tblGuilds); err != nil {
		return nil, err
	}

	return m, nil
}

// Executes simple queries, stopping at the first failure
func (m *MySQL) execQuery(query ...string) error {
	for _, q := range query {
		if _, err := m.db.Exec(q); err != nil {
			lit.Error("Error executing query, %s", err)
			return errors.WrapIf(err, "initialize tables")
		}
	}

	return nil
}

func (m *MySQL) Load(ctx context.Context, guildID string) (*GuildConfig, error) {
	var data []byte

	err := m.db.QueryRowContext(ctx, qrySelect, guildID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewGuildConfig(), nil
		}
		return nil, errors.WrapIf(err, "select guild record")
	}

	return decode(data)
}

func (m *MySQL) Save(ctx context.Context, guildID string, cfg *GuildConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, qryUpsert, guildID, data)
	return errors.WrapIf(err, "upsert guild record")
}

func (m *MySQL) Update(ctx context.Context, guildID string, fn func(cfg *GuildConfig) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIf(err, "begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Make sure there is a row to lock
	if _, err = tx.ExecContext(ctx, qryEnsure, guildID, "{}"); err != nil {
		return errors.WrapIf(err, "insert guild record")
	}

	var data []byte
	if err = tx.QueryRowContext(ctx, qrySelectLock, guildID).Scan(&data); err != nil {
		return errors.WrapIf(err, "lock guild record")
	}

	cfg, err := decode(data)
	if err != nil {
		return err
	}

	if err = fn(cfg); err != nil {
		return err
	}

	if data, err = encode(cfg); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, qryUpdate, data, guildID); err != nil {
		return errors.WrapIf(err, "update guild record")
	}

	if err = tx.Commit(); err != nil {
		return errors.WrapIf(err, "commit guild record")
	}
	committed = true

	return nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}
