package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Seeds a development database with a small catalog and the two demo
// coupons used throughout the docs. Safe to re-run: every statement
// upserts on its natural key.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, pool)
	seedCoupons(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Title    string
		Slug     string
		PriceUSD string
		PriceINR string
		Stock    int32
	}{
		{"Mechanical Keyboard", "mechanical-keyboard", "100.00", "8300.00", 50},
		{"Wireless Mouse", "wireless-mouse", "35.00", "2905.00", 120},
		{"USB-C Hub", "usb-c-hub", "49.99", "4149.17", 80},
		{"27in 4K Monitor", "27in-4k-monitor", "399.00", "33117.00", 15},
		{"Laptop Stand", "laptop-stand", "29.50", "2448.50", 200},
		{"Noise Cancelling Headphones", "noise-cancelling-headphones", "249.00", "20667.00", 40},
		{"Desk Mat", "desk-mat", "20.00", "1660.00", 0},
		{"Webcam 1080p", "webcam-1080p", "59.00", "4897.00", 60},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (title, slug, price_usd, price_inr, stock, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				price_usd = EXCLUDED.price_usd,
				price_inr = EXCLUDED.price_inr,
				stock = EXCLUDED.stock,
				updated_at = now();
		`, p.Title, p.Slug, p.PriceUSD, p.PriceINR, p.Stock)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Slug, err)
		}
	}
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) {
	coupons := []struct {
		Code        string
		Description string
		Type        string
		Value       string
		MinOrder    string
		Currency    string
		MaxUsage    *int32
	}{
		{"SAVE10", "10% off your order", "percentage", "10", "50.00", "USD", limit(100)},
		{"FLAT500", "Flat 500 rupees off", "fixed_amount", "500.00", "2000.00", "INR", limit(3)},
		{"WELCOME5", "5 dollars off your first order", "fixed_amount", "5.00", "", "USD", nil},
	}

	log.Println("Seeding Coupons...")
	for _, c := range coupons {
		var minOrder any
		if c.MinOrder != "" {
			minOrder = c.MinOrder
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, description, discount_type, discount_value,
				minimum_order_amount, amount_currency, max_usage_limit, is_active,
				expiration_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now() + INTERVAL '1 year')
			ON CONFLICT (code) DO UPDATE SET
				description = EXCLUDED.description,
				discount_type = EXCLUDED.discount_type,
				discount_value = EXCLUDED.discount_value,
				minimum_order_amount = EXCLUDED.minimum_order_amount,
				amount_currency = EXCLUDED.amount_currency,
				max_usage_limit = EXCLUDED.max_usage_limit,
				is_active = TRUE,
				expiration_date = EXCLUDED.expiration_date,
				updated_at = now();
		`, c.Code, c.Description, c.Type, c.Value, minOrder, c.Currency, c.MaxUsage)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}

func limit(n int32) *int32 { return &n }
