// Package webhook notifies external systems about account activity.
//
// The pipeline has three parts:
//
//   - Queue: pending account IDs with set semantics. An account already
//     waiting is not queued twice, so each account has at most one pending
//     delivery.
//   - Scheduler: on a fixed period, asks the directory which accounts saw
//     activity since the previous tick and enqueues them.
//   - Dispatcher: a single loop that drains the queue, builds a payload with
//     every device's current decision and group statistics, and POSTs it to
//     the account's webhook URL.
//
// Delivery is best effort. A failed POST is logged and dropped; the next
// activity on the account queues a fresh notification.
//
// # Usage
//
//	queue := webhook.NewQueue()
//	scheduler := webhook.NewScheduler(dir, queue, 30*time.Second, logger)
//	dispatcher := webhook.NewDispatcher(queue, dir, engine, client, webhook.DispatcherOptions{Logger: logger})
//
//	go scheduler.Run(ctx)
//	go dispatcher.Run(ctx)
package webhook
