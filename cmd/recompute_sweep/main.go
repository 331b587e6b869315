package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/edusoft/tuition-ledger/src/services"
)

// Nightly sweep: re-applies the billing rules to every non-paid payment
// record so overdue periods accrue their late fee and interest. Safe to run
// repeatedly; records whose derived values are already current are skipped.

func main() {
	var (
		student    = flag.String("student", "", "limit the sweep to one student id")
		periodFrom = flag.String("from", "", "earliest period to touch (YYYY-MM)")
		periodTo   = flag.String("to", "", "latest period to touch (YYYY-MM)")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := sql.Open("postgres", databaseURL())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()

	filter, err := buildFilter(*student, *periodFrom, *periodTo)
	if err != nil {
		logger.WithError(err).Fatal("invalid sweep filter")
	}

	reportService := services.NewReportService(db, logger)

	started := time.Now()
	result, err := reportService.RecomputeBatch(ctx, filter, started)
	if err != nil {
		logger.WithError(err).Fatal("recompute sweep failed")
	}

	logger.WithFields(logrus.Fields{
		"updated": result.Updated,
		"audited": result.Audited,
		"took":    time.Since(started).Round(time.Millisecond).String(),
	}).Info("recompute sweep finished")
}

func buildFilter(student, periodFrom, periodTo string) (services.RecomputeFilter, error) {
	filter := services.RecomputeFilter{}

	if student != "" {
		id, err := uuid.Parse(student)
		if err != nil {
			return filter, err
		}
		filter.StudentID = &id
	}
	if periodFrom != "" {
		from, err := time.Parse("2006-01", periodFrom)
		if err != nil {
			return filter, err
		}
		filter.PeriodFrom = &from
	}
	if periodTo != "" {
		to, err := time.Parse("2006-01", periodTo)
		if err != nil {
			return filter, err
		}
		filter.PeriodTo = &to
	}
	return filter, nil
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return "postgres://localhost/tuitionledger?sslmode=disable"
}
