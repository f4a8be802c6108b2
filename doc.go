// Package main hosts the harvester entrypoint.
//
// Architecture overview:
//   - Fetch pipeline: every page goes through the Colly-based fetcher (robots.txt aware), a per-host token bucket,
//     a jittered retry decorator and, when archiving is enabled, a decorator that writes the raw HTML to the
//     configured BlobStore (local disk or GCS). Transport failures surface as *harvest.TransportError.
//   - Roster index: each configured season listing is parsed with goquery and folded into one deduplicated index
//     where the first occurrence of a player name wins.
//   - Sync: the coordinator walks the index (or, with --resume, the tail after the last player whose stats were
//     persisted), scrapes each profile, and creates or updates players and season stat lines in the Store
//     (memory or Postgres). Players whose profile has no usable rows are skipped. Any transport or store failure
//     aborts the run.
//   - Progress: lifecycle events are buffered by the progress Hub and fanned out to a live tracker, zap logs,
//     Prometheus collectors, the run history table and, when a topic is configured, Pub/Sub.
//   - Status: with --listen (or status.listen_addr) a chi server exposes /healthz, /readyz, /metrics and
//     /v1/runs while the sync is running.
//
// Quick checklist:
//   - Configure env vars: HARVESTER_SYNC_SEASONS=2023,2024, HARVESTER_STORAGE_DRIVER=postgres, HARVESTER_DB_DSN,
//     HARVESTER_THROTTLE_REQUESTS_PER_SECOND, HARVESTER_ARCHIVE_ENABLED, HARVESTER_PUBSUB_TOPIC_NAME.
//   - Apply migrations/001_init.sql before the first Postgres run.
//   - Run locally: go run . sync --season 2024 (add --resume after an interrupted run).
package main
