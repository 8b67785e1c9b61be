package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// recordCmd adds an income or expense entry, either through the mirror
// queue or straight into the configured backend.
type recordCmd struct {
	owner    string
	kind     string
	amount   string
	category string
	date     string
	desc     string
	id       string
	direct   bool
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record an income or expense transaction" }
func (*recordCmd) Usage() string {
	return `fintrack-cli record -owner <id> -kind income|expense -amount <n> -category <name> [-date <yyyy-mm-dd>] [-desc <text>] [-id <id>] [-direct]

  Publishes a transaction.upserted message to the ledger exchange. With
  -direct the transaction is written to the configured backend instead.
  Recording again with the same -id replaces the entry.
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", os.Getenv("FINTRACK_OWNER"), "owner id (defaults to $FINTRACK_OWNER)")
	f.StringVar(&c.kind, "kind", string(core.Expense), "income or expense")
	f.StringVar(&c.amount, "amount", "", "non-negative amount, e.g. 12.50")
	f.StringVar(&c.category, "category", "", "category name")
	f.StringVar(&c.date, "date", time.Now().UTC().Format(time.DateOnly), "date the transaction occurred")
	f.StringVar(&c.desc, "desc", "", "optional description")
	f.StringVar(&c.id, "id", "", "transaction id (generated when empty)")
	f.BoolVar(&c.direct, "direct", false, "write to the backend instead of publishing")
}

func (c *recordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tx, err := c.transaction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := loadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	if c.direct {
		err = c.writeDirect(ctx, a, tx)
	} else {
		err = c.publish(ctx, a, tx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording transaction: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(tx.ID)
	return subcommands.ExitSuccess
}

func (c *recordCmd) transaction() (core.Transaction, error) {
	if strings.TrimSpace(c.owner) == "" {
		return core.Transaction{}, errors.New("-owner is required")
	}
	kind, err := core.ParseKind(c.kind)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("-amount: %w", err)
	}
	on, err := time.ParseInLocation(time.DateOnly, c.date, time.UTC)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("-date: %w", err)
	}
	id := c.id
	if id == "" {
		id = uuid.NewString()
	}
	tx := core.Transaction{
		ID:          id,
		OwnerID:     c.owner,
		Kind:        kind,
		Amount:      amount,
		Category:    strings.TrimSpace(c.category),
		Description: strings.TrimSpace(c.desc),
		OccurredAt:  on,
	}
	return tx, tx.Validate()
}

func (c *recordCmd) publish(ctx context.Context, a *app, tx core.Transaction) error {
	if a.cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is not set; use -direct to write to the backend")
	}
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Publish(ctx, amqp.NewTransactionUpserted(tx)); err != nil {
		return err
	}
	a.logger.Info("Transaction published", "id", tx.ID, "owner_id", tx.OwnerID)
	return nil
}

func (c *recordCmd) writeDirect(ctx context.Context, a *app, tx core.Transaction) error {
	res, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	if !res.Type.Writable() {
		_ = res.Close()
		return fmt.Errorf("%s backend: %w", res.Type, core.ErrReadOnlyBackend)
	}
	svc := services.NewLedgerService(res.Store, res.Store, services.WithCloser(res.Close))
	defer svc.Close()

	saved, err := svc.RecordTransaction(ctx, tx)
	if err != nil {
		return err
	}
	a.logger.Info("Transaction saved", "id", saved.ID, "owner_id", saved.OwnerID, "backend", res.Type.String())
	return nil
}
