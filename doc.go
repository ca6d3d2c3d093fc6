// Package semsearch embeds the semsearch retrieval engine in-process.
//
// It indexes tenant content (products, FAQ entries, web and document chunks)
// into a Qdrant, Redis or Valkey vector index and answers tenant-scoped
// similarity queries, optionally reranked by an LLM.
//
//	client, _ := semsearch.New(
//	    semsearch.WithQdrant("localhost:6334"),
//	    semsearch.WithOpenAI("https://api.openai.com/v1", apiKey, "text-embedding-3-small"),
//	    semsearch.WithDimension(1536),
//	)
//	defer client.Close()
//
//	report := client.Index(ctx, semsearch.FaqEntry{ID: "1", Tenant: "acme", Question: "...", Answer: "..."})
//	res, _ := client.Search(ctx, semsearch.Query{Kind: semsearch.KindFAQ, TenantID: "acme", Text: "refund"})
package semsearch
