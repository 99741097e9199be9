package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect は組み立て済みDSNでDBに接続して *gorm.DB を返す。
// DSNの組み立て（DATABASE_URL優先、POSTGRES_*のデフォルト）はconfig側。
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}
