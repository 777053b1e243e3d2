// Package scraper fetches exam notice pages and turns them into candidate text blocks.
//
// Each source is described by a Source value (pages to visit, CSS selectors, title filters)
// and walked by an HTMLAdapter. Adapters only produce Blocks; date extraction and
// classification happen downstream so every source shares the same heuristics.
//
// Pages are retrieved through a PageFetcher. The default Fetcher sends browser-like headers,
// tolerates broken TLS certificates (common on government sites) and rate limits per host.
// CachedFetcher adds a Redis page cache in front of any PageFetcher.
package scraper
