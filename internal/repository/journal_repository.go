package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ScanDesk/internal/domain/models"
	"ScanDesk/internal/domain/repository"
	pkgch "ScanDesk/pkg/clickhouse"
	pkgkafka "ScanDesk/pkg/kafka"
)

const DefaultJournalTable = "scan_journal"

// JournalSchema creates the journal table. Records are append-only; id makes
// replays detectable.
func JournalSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id          String,
    kind        LowCardinality(String),
    session_id  String,
    timeframe   LowCardinality(String),
    name        String,
    direction   LowCardinality(String),
    price       Float64,
    state       LowCardinality(String),
    scanned     UInt32,
    found       UInt32,
    payload     String,
    recorded_at DateTime64(3)
) ENGINE = MergeTree
ORDER BY (kind, recorded_at, name)`, table),
	}
}

const journalColumns = "id, kind, session_id, timeframe, name, direction, price, state, scanned, found, payload, recorded_at"

// ClickHouseJournal implements JournalStorage for ClickHouse.
type ClickHouseJournal struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
}

func NewClickHouseJournal(client *pkgch.Client, table string) *ClickHouseJournal {
	if table == "" {
		table = DefaultJournalTable
	}
	return &ClickHouseJournal{client: client, db: client.DB(), table: table}
}

var _ repository.JournalStorage = (*ClickHouseJournal)(nil)

func (s *ClickHouseJournal) Init(ctx context.Context) error {
	if err := s.client.Exec(ctx, JournalSchema(s.table)...); err != nil {
		return fmt.Errorf("init journal schema: %w", err)
	}
	return nil
}

func (s *ClickHouseJournal) Store(ctx context.Context, r *models.JournalRecord) error {
	return s.StoreBatch(ctx, []*models.JournalRecord{r})
}

func (s *ClickHouseJournal) StoreBatch(ctx context.Context, records []*models.JournalRecord) error {
	const chunkSize = 2000
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		q, args := buildJournalInsert(s.table, records[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert journal: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseJournal) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseJournal) Close() error {
	return s.client.Close()
}

// buildJournalInsert renders one multi-row INSERT. Nil records are skipped.
func buildJournalInsert(table string, records []*models.JournalRecord) (string, []interface{}) {
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*12)
	for _, r := range records {
		if r == nil || r.ID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.ID,
			string(r.Kind),
			r.SessionID,
			r.Timeframe,
			r.Name,
			string(r.Direction),
			r.Price,
			string(r.State),
			uint32(r.Scanned),
			uint32(r.Found),
			string(r.Payload),
			r.RecordedAt,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, journalColumns, strings.Join(values, ","))
	return q, args
}

// KafkaJournal implements JournalPublisher for Kafka.
type KafkaJournal struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaJournal(producer *pkgkafka.Producer, topic string) *KafkaJournal {
	return &KafkaJournal{producer: producer, topic: topic}
}

var _ repository.JournalPublisher = (*KafkaJournal)(nil)

func (p *KafkaJournal) Publish(ctx context.Context, r *models.JournalRecord) error {
	return p.PublishBatch(ctx, []*models.JournalRecord{r})
}

func (p *KafkaJournal) PublishBatch(ctx context.Context, records []*models.JournalRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		msgs = append(msgs, journalMessage(r))
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// journalMessage keys by signal name so a stock's history stays ordered on
// one partition. The kind header lets consumers filter without decoding.
func journalMessage(r *models.JournalRecord) pkgkafka.Message {
	return pkgkafka.Message{
		Key:   []byte(r.Key()),
		Value: r,
		Headers: map[string]string{
			"kind":       string(r.Kind),
			"session_id": r.SessionID,
		},
	}
}

func (p *KafkaJournal) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
