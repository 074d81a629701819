// Package shutdown provides cooperative shutdown for respkv.
//
// Two pieces work together:
//
//   - Notifier and Listener: a one-shot broadcast. The server owns one
//     Notifier and hands every connection handler its own Listener, which
//     stays shut down once it has seen the event.
//   - Handler: waits for SIGINT/SIGTERM (or Trigger) and runs registered
//     hooks in reverse order under a shared timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	_ = h.Wait()
package shutdown
