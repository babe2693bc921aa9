package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// pingTimeout は起動時の疎通確認の待ち時間。
const pingTimeout = 5 * time.Second

// Open はPostgreSQLの接続プールを生成する。接続自体は行わない。
// api・seedの複数プロセスで同一DBを共有するため、プロセスあたりの最大接続数をmaxOpenConnsで制限する。
// maxOpenConnsが0以下の場合は上限を設けない。
func Open(databaseURL string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(max(maxOpenConns/5, 1))
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// Connect は接続プールを生成し、疎通を確認してから返す。
// 疎通できない場合はプールを閉じてエラーを返す。
func Connect(ctx context.Context, databaseURL string, maxOpenConns int) (*sql.DB, error) {
	db, err := Open(databaseURL, maxOpenConns)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
