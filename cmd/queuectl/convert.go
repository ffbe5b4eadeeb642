package main

import "github.com/queuectl/queuectl/internal/domain"

func toEnqueueInput(p enqueuePayload) domain.EnqueueInput {
	return domain.EnqueueInput{
		ID:         p.ID,
		Command:    p.Command,
		MaxRetries: p.MaxRetries,
		Attempts:   p.Attempts,
		RunAt:      p.RunAt,
		Priority:   p.Priority,
	}
}
