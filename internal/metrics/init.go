package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	databases := []string{"folder", "global"}
	for _, db := range databases {
		for _, file := range []string{"main", "wal", "shm"} {
			DBSizeBytes.WithLabelValues(db, file)
		}
		DBConnectionsOpen.WithLabelValues(db)
		DBMigrationVersion.WithLabelValues(db)
	}

	for _, op := range []string{
		"initialize_schema", "upsert_video", "upsert_clip", "upsert_clip_vector",
		"delete_missing", "sync_upsert", "begin_transaction", "commit", "rollback",
	} {
		for _, db := range databases {
			DBQueryTotal.WithLabelValues(db, op, "success")
			DBQueryTotal.WithLabelValues(db, op, "error")
			DBQueryDuration.WithLabelValues(db, op)
		}
	}

	for _, status := range []string{"success", "error"} {
		SyncRunsTotal.WithLabelValues(status)
		VolumeRebaseTotal.WithLabelValues(status)
	}

	for _, kind := range []string{"added", "removed", "modified", "rescan_needed"} {
		WatcherEventsTotal.WithLabelValues(kind)
	}

	for _, kind := range []string{"mount", "unmount"} {
		VolumeMonitorMountEvents.WithLabelValues(kind)
	}

	for _, stage := range []string{
		"fingerprint", "content_hash", "segmentation", "vision_captioning",
		"speech_to_text", "text_embedding", "vision_embedding", "sync",
	} {
		for _, outcome := range []string{"ok", "skipped", "error", "skipped_no_audio"} {
			PipelineStageOutcome.WithLabelValues(stage, outcome)
		}
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, outcome := range []string{"skipped_unchanged", "processed", "failed", "renamed"} {
		PipelineVideosProcessed.WithLabelValues(outcome)
	}

	for _, provider := range []string{"cloud", "offline"} {
		for _, capability := range []string{"embed", "caption", "clip_embed", "transcribe"} {
			for _, status := range []string{"success", "error", "unavailable"} {
				ProviderRequestsTotal.WithLabelValues(provider, capability, status)
			}
			ProviderRequestDuration.WithLabelValues(provider, capability)
			ProviderRetries.WithLabelValues(provider, capability)
		}
		RateLimiterWaitDuration.WithLabelValues(provider)
	}

	for _, model := range []string{"clip", "text"} {
		VectorStoreSize.WithLabelValues(model)
		VectorStoreSearchDuration.WithLabelValues(model)
		HNSWIndexSize.WithLabelValues(model)
		HNSWSearchDuration.WithLabelValues(model)
		for _, status := range []string{"success", "error"} {
			HNSWRebuildsTotal.WithLabelValues(model, status)
		}
		HNSWRebuildDuration.WithLabelValues(model)
	}

	for _, mode := range []string{"fts", "auto"} {
		QueryRequestsTotal.WithLabelValues(mode)
		QueryDuration.WithLabelValues(mode)
	}
	for _, path := range []string{"dictionary", "neural", "skipped"} {
		QueryExpansionTranslations.WithLabelValues(path)
	}

	volumes := []string{"unknown"}
	fsOps := []string{"read", "write", "stat", "readdir", "open"}
	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
	}
	retryOps := []string{"stat", "open", "readdir", "write"}
	for _, op := range retryOps {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
