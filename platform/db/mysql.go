package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ops_reporting_backend/platform/config"

	"github.com/go-sql-driver/mysql"
)

// NewMySQL opens the legacy MySQL database holding the migrated historic table.
// The DSN always gets parseTime=true so DATE columns scan into time.Time.
func NewMySQL(ctx context.Context, cfg config.LegacyDatabaseConfig) (*sql.DB, error) {
	mysqlCfg, err := mysql.ParseDSN(strings.TrimSpace(cfg.GetLegacyMySQLDSN()))
	if err != nil {
		return nil, fmt.Errorf("parse legacy mysql dsn: %w", err)
	}
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC

	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, err
	}
	sqlDB := sql.OpenDB(connector)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}
