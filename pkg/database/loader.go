package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rfm-segments/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// DefaultTable contient les lignes de facture Online Retail II.
const DefaultTable = "online_retail"

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb://, mysql:// → driver MySQL ; postgres:// → lib/pq.
// Renvoie aussi le nom du driver utilisé.
func Open(dsn string) (*sql.DB, string, error) {
	driver, driverDSN, err := driverFor(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, driverDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, driver, nil
}

func driverFor(dsn string) (string, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	default:
		mysqlDSN, err := toMySQLDSN(dsn)
		if err != nil {
			return "", "", err
		}
		return "mysql", mysqlDSN, nil
	}
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// LoadOptions paramètre la lecture des lignes de facture.
type LoadOptions struct {
	Table    string
	Progress bool
	Logger   *zap.Logger
}

// LoadOrderLines lit toutes les lignes de facture de la table.
// Aucune ligne n'est filtrée ici : le nettoyage appartient au calculateur.
func LoadOrderLines(ctx context.Context, db *sql.DB, opts LoadOptions) ([]models.OrderLine, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("table invalide: %q", table)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Compter les lignes pour dimensionner la barre de progression
	total := int64(-1)
	if opts.Progress {
		var n int64
		if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err == nil {
			total = n
		} else {
			logger.Debug("comptage impossible", zap.String("table", table), zap.Error(err))
		}
	}
	bar := progressbar.DefaultSilent(total, "lecture")
	if opts.Progress {
		bar = progressbar.Default(total, "lecture")
	}
	defer func() { _ = bar.Finish() }()

	q := fmt.Sprintf(`
		SELECT invoice, stock_code, description, quantity, invoice_date, price, customer_id, country
		FROM %s
	`, table)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var (
			l           models.OrderLine
			description sql.NullString
			price       decimal.Decimal
			customerID  sql.NullString
			country     sql.NullString
		)
		if err := rows.Scan(&l.Invoice, &l.StockCode, &description, &l.Quantity,
			&l.InvoiceDate, &price, &customerID, &country); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(lines)+1, err)
		}
		l.Description = description.String
		l.UnitPrice = price
		l.CustomerID = models.NewCustomerID(customerID.String)
		l.Country = country.String
		l.InvoiceDate = l.InvoiceDate.UTC()
		lines = append(lines, l)
		_ = bar.Add(1)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Info("lignes lues", zap.String("table", table), zap.Int("rows", len(lines)))
	return lines, nil
}
