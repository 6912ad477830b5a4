// Package jobs provides scheduled background tasks for the bot.
//
// Jobs are built on github.com/robfig/cron/v3 and started together through
// JobManager:
//
//	jobManager := jobs.NewJobManager(logger, tokenJob)
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// # Available Jobs
//
// TokenRefreshJob mints a new commerce access token shortly before the current
// one expires. It is the only writer of the shared TokenStore.
package jobs
