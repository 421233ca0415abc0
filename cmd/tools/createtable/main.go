package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS courses (
	  id BIGINT NOT NULL AUTO_INCREMENT,
	  title VARCHAR(200) NOT NULL,
	  description TEXT,
	  price DECIMAL(10,2) NOT NULL,
	  is_active TINYINT(1) NOT NULL DEFAULT 1,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS payments (
	  id BIGINT NOT NULL AUTO_INCREMENT,
	  course_id BIGINT NOT NULL,
	  amount DECIMAL(10,2) NOT NULL,
	  status VARCHAR(20) NOT NULL DEFAULT 'pending',
	  payment_method VARCHAR(50),
	  transaction_id VARCHAR(100),
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  completed_at DATETIME(3),
	  PRIMARY KEY (id),
	  KEY ix_payments_course_id (course_id),
	  KEY ix_payments_status (status),
	  CONSTRAINT fk_payments_course FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS gateway_configs (
	  id INT UNSIGNED NOT NULL AUTO_INCREMENT,
	  gateway_name VARCHAR(50) NOT NULL DEFAULT 'redsys',
	  merchant_code VARCHAR(9),
	  terminal VARCHAR(3) NOT NULL DEFAULT '001',
	  secret_key VARCHAR(500),
	  environment VARCHAR(10) NOT NULL DEFAULT 'test',
	  signature_version VARCHAR(20) NOT NULL DEFAULT 'HMAC_SHA256_V1',
	  endpoint_test VARCHAR(200),
	  endpoint_production VARCHAR(200),
	  public_base_url VARCHAR(200),
	  is_active TINYINT(1) NOT NULL DEFAULT 1,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_gateway_configs_active (is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS gateway_notifications (
	  id CHAR(36) NOT NULL,
	  order_token VARCHAR(12),
	  payment_id BIGINT,
	  outcome VARCHAR(32) NOT NULL,
	  params_json JSON,
	  signature VARCHAR(128),
	  received_at DATETIME(3) NOT NULL,
	  processed_at DATETIME(3),
	  process_error VARCHAR(255),
	  PRIMARY KEY (id),
	  KEY ix_gateway_notifications_order (order_token),
	  KEY ix_gateway_notifications_payment (payment_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("✓ courses table created successfully")
	log.Println("✓ payments table created successfully")
	log.Println("✓ gateway_configs table created successfully")
	log.Println("✓ gateway_notifications table created successfully")
}
