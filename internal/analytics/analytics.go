package analytics

import (
	"context"
	"sort"
	"time"

	"herald-bot/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

// CommandUsage is one command's slice of a report, ordered by invocations.
type CommandUsage struct {
	CommandID   int64  `json:"command_id"`
	CommandName string `json:"command_name"`
	Uses        int    `json:"uses"`
	Failures    int    `json:"failures"`
}

type Report struct {
	Total             int            `json:"total"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	UniqueUsers       int            `json:"unique_users"`
	AvgResponseTimeMs int64          `json:"avg_response_time_ms"`
	TopCommands       []CommandUsage `json:"top_commands"`
}

// Report aggregates a guild's command log rows since the given time. Failed
// rows include cooldown rejections, so Failed is not purely an error count.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListCommandLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{}
	users := make(map[string]struct{})
	byCommand := make(map[int64]*CommandUsage)
	var totalMs int64
	var timed int

	for _, log := range logs {
		report.Total++
		if log.Success {
			report.Succeeded++
			totalMs += log.ResponseTimeMs
			timed++
		} else {
			report.Failed++
		}
		users[log.UserID] = struct{}{}

		usage, ok := byCommand[log.CommandID]
		if !ok {
			usage = &CommandUsage{CommandID: log.CommandID, CommandName: log.CommandName}
			byCommand[log.CommandID] = usage
		}
		usage.Uses++
		if !log.Success {
			usage.Failures++
		}
	}

	report.UniqueUsers = len(users)
	if timed > 0 {
		report.AvgResponseTimeMs = totalMs / int64(timed)
	}

	for _, usage := range byCommand {
		report.TopCommands = append(report.TopCommands, *usage)
	}
	sort.Slice(report.TopCommands, func(i, j int) bool {
		if report.TopCommands[i].Uses != report.TopCommands[j].Uses {
			return report.TopCommands[i].Uses > report.TopCommands[j].Uses
		}
		return report.TopCommands[i].CommandName < report.TopCommands[j].CommandName
	})
	if len(report.TopCommands) > 10 {
		report.TopCommands = report.TopCommands[:10]
	}
	return report, nil
}
