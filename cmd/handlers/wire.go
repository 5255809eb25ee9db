package handlers

import (
	"fmt"

	"pressroom/internal/config"
	"pressroom/internal/indexing"
	"pressroom/internal/llm"
	"pressroom/internal/orchestrator"
	"pressroom/internal/pipeline"
	"pressroom/internal/social"
	"pressroom/internal/store"
)

// buildOrchestrator wires the store, generation client, state machine and
// collaborator clients into a ready orchestrator. The caller owns closing
// the returned store.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, *store.Store, error) {
	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	generator, err := llm.NewClient(cfg.AI.Gemini.Model)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("create generation client: %w", err)
	}

	machine := pipeline.NewMachine(st, generator, cfg.Publishing.Languages)
	indexer := indexing.NewNotifier(cfg.Publishing.Indexing.Endpoint)
	publisher := social.NewPublisher(cfg.Publishing.Social.BaseURL, cfg.Publishing.Social.Token)

	orch := orchestrator.New(st, machine, generator, indexer, publisher, orchestrator.Config{
		BaseURL:       cfg.Publishing.BaseURL,
		BatchBudget:   cfg.Publishing.BatchBudget,
		NotifyTimeout: cfg.Publishing.NotifyTimeout,
		PostTimeout:   cfg.Publishing.PostTimeout,
	})
	return orch, st, nil
}
