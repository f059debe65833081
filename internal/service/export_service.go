package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chiapettaiago/chamados/internal/domain"
	"github.com/chiapettaiago/chamados/internal/repository"
	apperrors "github.com/chiapettaiago/chamados/pkg/util"
)

const (
	statusCountsKeyPrefix = "chamados:status_counts:"
	statusCountsTTL       = time.Minute
)

// ExportRow is the flat projection consumed by spreadsheet writers.
type ExportRow struct {
	ID            int64
	Title         string
	StatusLabel   string
	Priority      string
	Vendor        string
	Assignee      string
	CreatorEmail  string
	OpenDuration  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastContactAt time.Time
	Stale         bool
}

// ExportService builds read-only projections of the ticket base. It scopes
// queries exactly like listings but never triggers the stale digest.
type ExportService struct {
	tickets      repository.TicketRepository
	interactions repository.InteractionRepository
	users        repository.UserRepository
	cache        *redis.Client
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs the service. The redis client may be nil;
// caching then degrades to recomputation.
func NewExportService(tickets repository.TicketRepository, interactions repository.InteractionRepository, users repository.UserRepository, cache *redis.Client, logger *zap.Logger, now func() time.Time) *ExportService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		tickets:      tickets,
		interactions: interactions,
		users:        users,
		cache:        cache,
		logger:       logger,
		now:          now,
	}
}

// Rows projects the tickets visible to the user under the same q/status
// filter as the listing endpoint.
func (s *ExportService) Rows(ctx context.Context, user *domain.User, query string, status domain.TicketStatus) ([]ExportRow, error) {
	if status != "" && !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	filter := repository.TicketFilter{Query: query, Status: status}
	if !user.IsAdmin() {
		filter.CreatedBy = &user.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	creatorEmails := map[int64]string{}
	rows := make([]ExportRow, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]

		email, ok := creatorEmails[t.CreatedBy]
		if !ok {
			creator, err := s.users.GetByID(ctx, t.CreatedBy)
			if err != nil {
				return nil, err
			}
			email = creator.Email
			creatorEmails[t.CreatedBy] = email
		}

		interactions, err := s.interactions.ListByTicket(ctx, t.ID)
		if err != nil {
			return nil, err
		}

		rows = append(rows, ExportRow{
			ID:            t.ID,
			Title:         t.Title,
			StatusLabel:   domain.StatusLabel(t.Status),
			Priority:      string(t.Priority),
			Vendor:        t.Vendor,
			Assignee:      t.Assignee,
			CreatorEmail:  email,
			OpenDuration:  formatDuration(now.Sub(t.CreatedAt)),
			CreatedAt:     t.CreatedAt,
			UpdatedAt:     t.UpdatedAt,
			LastContactAt: domain.LastContactAt(t, interactions),
			Stale:         domain.IsStale24h(t, interactions, now),
		})
	}
	return rows, nil
}

// WriteCSV renders rows as the semicolon-separated CSV the spreadsheet
// consumers expect: UTF-8 BOM, an Excel "sep=;" hint line and pt-BR headers.
func (s *ExportService) WriteCSV(w io.Writer, rows []ExportRow) error {
	if _, err := io.WriteString(w, "\uFEFFsep=;\n"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{
		"ID", "Título", "Status", "Prioridade", "Terceirizada", "Responsável",
		"Criado por", "Aberto há (HH:MM:SS)", "Criado em", "Atualizado em",
		"Última interação", "Alerta 24h",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		stale := "Não"
		if row.Stale {
			stale = "Sim"
		}
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.Title,
			row.StatusLabel,
			row.Priority,
			row.Vendor,
			row.Assignee,
			row.CreatorEmail,
			row.OpenDuration,
			formatTimestamp(row.CreatedAt),
			formatTimestamp(row.UpdatedAt),
			formatTimestamp(row.LastContactAt),
			stale,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// StatusCounts summarizes how many visible tickets sit in each status.
// Results are cached per user for one minute; cache failures fall back to
// recomputation.
func (s *ExportService) StatusCounts(ctx context.Context, user *domain.User) (map[domain.TicketStatus]int, error) {
	key := statusCountsKeyPrefix + strconv.FormatInt(user.ID, 10)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var cached map[domain.TicketStatus]int
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("status counts cache read failed", zap.Error(err))
		}
	}

	filter := repository.TicketFilter{}
	if !user.IsAdmin() {
		filter.CreatedBy = &user.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.TicketStatus]int)
	for i := range tickets {
		counts[tickets[i].Status]++
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, key, encoded, statusCountsTTL).Err(); err != nil {
				s.logger.Warn("status counts cache write failed", zap.Error(err))
			}
		}
	}
	return counts, nil
}

// ExportFileName returns the timestamped download name.
func ExportFileName(now time.Time) string {
	return "chamados_" + now.UTC().Format("20060102_1504") + ".csv"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return ""
	}
	total := int64(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}
