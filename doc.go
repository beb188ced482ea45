// Package aksara is the conversational retrieval-and-answer core of a campus
// knowledge assistant. It answers natural-language questions by consulting a
// vector knowledge base and an LLM while preserving multi-turn context.
//
// The core building blocks are interface-driven and composable:
//
//   - [Provider]: LLM backend (chat with tool calling)
//   - [VectorSearcher]: similarity search over the knowledge base
//   - [ConversationStore]: per-thread turn history with sliding expiry
//   - [Classifier]: optional emotion classification for incoming messages
//   - [Retriever]: multi-query expansion, concurrent fan-out, deduplication
//   - [Engine]: the bounded retrieve/respond reasoning loop
//
// # Quick Start
//
//	provider := openaicompat.NewProvider(apiKey, "gpt-4o-mini", "https://api.openai.com/v1")
//	searcher, err := qdrant.New(qdrantCfg, embedding)
//	store := sqlite.New("aksara.db")
//
//	engine := aksara.NewEngine(
//		aksara.WithRetry(provider),
//		aksara.NewRetriever(searcher),
//		aksara.NewFallbackStore(store, 24*time.Hour),
//	)
//
//	result, err := engine.Process(ctx, threadID, "Apa program studi di STEI?", aksara.Hints{})
//
// # Included Implementations
//
// Providers: provider/openaicompat (OpenAI-compatible chat + embedding APIs).
// Search: search/qdrant (Qdrant vector database).
// Storage: store/sqlite (local), store/postgres (shared).
// Classifier: classifier (HTTP emotion service, degrades to neutral).
//
// See cmd/aksara for a complete wired server.
package aksara
