package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Skills() SkillRepositoryInterface
	Sources() KnowledgeSourceRepositoryInterface
	Chunks() ChunkRepositoryInterface
	RetrievalConfigs() RetrievalConfigRepositoryInterface
	Materials() MaterialRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
