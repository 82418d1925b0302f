package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	Name     string
	Category string
	Price    string
	Stock    int
	Expiry   string
	Lot      string
}

type seedOffer struct {
	Product     string
	MinQuantity int
	UnitPrice   string
}

var products = []seedProduct{
	{"Coca Cola 1.5L", "gaseosas", "1250", 48, "2026-12-31", "CC-2401"},
	{"Sprite 2.25L", "gaseosas", "1400", 24, "2026-11-30", "SP-2402"},
	{"Fideos Tirabuzón 500g", "alimentos", "820.50", 60, "2027-03-01", ""},
	{"Yerba Mate 1kg", "alimentos", "3100", 30, "2027-06-15", "YM-11"},
	{"Arroz Largo Fino 1kg", "alimentos", "1150", 40, "2027-01-10", ""},
	{"Lavandina 1L", "limpieza", "690", 36, "2026-09-01", "LV-7"},
	{"Detergente 750ml", "limpieza", "1320", 20, "2026-10-20", ""},
	{"Asado de tira x kg", "carniceria", "8900", 15, "2025-12-15", "AS-03"},
	{"Pilas AA x4", "bazar", "2500", 25, "2029-01-01", ""},
}

var offers = []seedOffer{
	{"Coca Cola 1.5L", 3, "1100"},
	{"Fideos Tirabuzón 500g", 4, "700"},
	{"Lavandina 1L", 2, "600"},
}

var accounts = []string{"Doña Rosa", "Carlos (taller)", "Familia Gómez"}

var notes = [][2]string{
	{"Pedido distribuidora", "Reponer gaseosas el jueves antes de las 10."},
	{"Heladera", "Llamar al técnico por el ruido del compresor."},
}

func centavos(value string) int64 {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatalf("invalid amount %q: %v", value, err)
	}
	return d.Shift(2).Round(0).IntPart()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	ids := seedProducts(db)
	seedOffers(db, ids)
	seedAccounts(db)
	seedNotes(db)

	log.Println("Seeding completed successfully!")
}

func seedProducts(db *sql.DB) map[string]int64 {
	fmt.Println("Seeding Products...")
	ids := make(map[string]int64, len(products))
	for _, p := range products {
		var id int64
		err := db.QueryRow(`SELECT id FROM productos WHERE nombre = $1`, p.Name).Scan(&id)
		if err == nil {
			ids[p.Name] = id
			continue
		}
		if err != sql.ErrNoRows {
			log.Printf("Failed to look up product %s: %v", p.Name, err)
			continue
		}
		var lot any
		if p.Lot != "" {
			lot = p.Lot
		}
		err = db.QueryRow(`
			INSERT INTO productos (nombre, categoria, precio, stock, fecha_vencimiento, lote)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;
		`, p.Name, p.Category, centavos(p.Price), p.Stock, p.Expiry, lot).Scan(&id)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
			continue
		}
		ids[p.Name] = id
	}
	return ids
}

func seedOffers(db *sql.DB, ids map[string]int64) {
	fmt.Println("Seeding Offers...")
	for _, o := range offers {
		productID, ok := ids[o.Product]
		if !ok {
			log.Printf("Missing product ID for %s", o.Product)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO ofertas (producto_id, cantidad_minima, precio_unitario)
			VALUES ($1, $2, $3)
			ON CONFLICT (producto_id) DO NOTHING;
		`, productID, o.MinQuantity, centavos(o.UnitPrice))
		if err != nil {
			log.Printf("Failed to seed offer for %s: %v", o.Product, err)
		}
	}
}

func seedAccounts(db *sql.DB) {
	fmt.Println("Seeding Accounts...")
	for _, name := range accounts {
		_, err := db.Exec(`
			INSERT INTO cuentas (nombre)
			SELECT $1 WHERE NOT EXISTS (SELECT 1 FROM cuentas WHERE nombre = $1);
		`, name)
		if err != nil {
			log.Printf("Failed to seed account %s: %v", name, err)
		}
	}
}

func seedNotes(db *sql.DB) {
	fmt.Println("Seeding Notes...")
	for _, n := range notes {
		_, err := db.Exec(`
			INSERT INTO notas (titulo, descripcion)
			SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM notas WHERE titulo = $1);
		`, n[0], n[1])
		if err != nil {
			log.Printf("Failed to seed note %s: %v", n[0], err)
		}
	}
}
