package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName   string
	Env           string
	StoreName     string
	DataDir       string
	InventoryFile string
	OrdersFile    string
	ReceiptsDir   string
	ModifyWindow  time.Duration
	CleanupSpec   string
	MetricsAddr   string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present next to the binary.
func Load() Config {
	_ = godotenv.Load()

	dataDir := getenv("DATA_DIR", "data")
	windowMinutes := cast.ToInt(getenv("MODIFY_WINDOW_MINUTES", "60"))
	if windowMinutes <= 0 {
		windowMinutes = 60
	}

	return Config{
		ServiceName:   getenv("SERVICE_NAME", "minimart"),
		Env:           getenv("ENV", "dev"),
		StoreName:     getenv("STORE_NAME", "Hami MiniMarket"),
		DataDir:       dataDir,
		InventoryFile: getenv("INVENTORY_FILE", filepath.Join(dataDir, "inventory.csv")),
		OrdersFile:    getenv("ORDERS_FILE", filepath.Join(dataDir, "orders.json")),
		ReceiptsDir:   getenv("RECEIPTS_DIR", filepath.Join(dataDir, "receipts")),
		ModifyWindow:  time.Duration(windowMinutes) * time.Minute,
		CleanupSpec:   getenv("CLEANUP_CRON", "@every 10m"),
		MetricsAddr:   getenv("METRICS_ADDR", ":8080"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
