package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordRow 文档表：每个集合的每条记录一行，版本号用于条件写
type recordRow struct {
	Collection string    `gorm:"primaryKey;size:64"`
	Key        string    `gorm:"primaryKey;size:128;column:record_key"`
	Version    int64     `gorm:"not null"`
	Data       []byte    `gorm:"type:json"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (recordRow) TableName() string {
	return "records"
}

// MySQLEngine 网络文档引擎：条件 UPDATE 实现乐观写，gorm 事务实现多记录原子提交。
type MySQLEngine struct {
	db *gorm.DB
}

type MySQLConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

func NewMySQLEngine(cfg *MySQLConfig) (*MySQLEngine, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, err
	}

	log.Println("Document store connection established")
	return &MySQLEngine{db: db}, nil
}

func (e *MySQLEngine) Get(ctx context.Context, collection, key string) (Record, error) {
	var row recordRow
	err := e.db.WithContext(ctx).
		Where("collection = ? AND record_key = ?", collection, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Record{Key: row.Key, Version: row.Version, Data: row.Data}, nil
}

func (e *MySQLEngine) List(ctx context.Context, collection string) ([]Record, error) {
	var rows []recordRow
	err := e.db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{Key: row.Key, Version: row.Version, Data: row.Data})
	}
	return records, nil
}

func (e *MySQLEngine) Put(ctx context.Context, collection, key string, data []byte) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return putRow(tx, Op{Kind: OpPut, Collection: collection, Key: key, Data: data, ExpectedVersion: VersionAny})
	})
}

func (e *MySQLEngine) PutIfVersion(ctx context.Context, collection, key string, data []byte, expectedVersion int64) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return putRow(tx, Op{Kind: OpPut, Collection: collection, Key: key, Data: data, ExpectedVersion: expectedVersion})
	})
	if errors.Is(err, ErrAborted) {
		return ErrVersionConflict
	}
	return err
}

func (e *MySQLEngine) Transact(ctx context.Context, ops []Op) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Kind == OpDelete {
				if err := tx.Where("collection = ? AND record_key = ?", op.Collection, op.Key).
					Delete(&recordRow{}).Error; err != nil {
					return err
				}
				continue
			}
			if err := putRow(tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *MySQLEngine) Delete(ctx context.Context, collection, key string) error {
	return e.db.WithContext(ctx).
		Where("collection = ? AND record_key = ?", collection, key).
		Delete(&recordRow{}).Error
}

func putRow(tx *gorm.DB, op Op) error {
	switch op.ExpectedVersion {
	case VersionNone:
		row := recordRow{Collection: op.Collection, Key: op.Key, Version: 1, Data: op.Data}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAborted
			}
			return err
		}
		return nil
	case VersionAny:
		res := tx.Model(&recordRow{}).
			Where("collection = ? AND record_key = ?", op.Collection, op.Key).
			Updates(map[string]interface{}{"data": op.Data, "version": gorm.Expr("version + 1")})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			row := recordRow{Collection: op.Collection, Key: op.Key, Version: 1, Data: op.Data}
			return tx.Create(&row).Error
		}
		return nil
	default:
		res := tx.Model(&recordRow{}).
			Where("collection = ? AND record_key = ? AND version = ?", op.Collection, op.Key, op.ExpectedVersion).
			Updates(map[string]interface{}{"data": op.Data, "version": op.ExpectedVersion + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAborted
		}
		return nil
	}
}
