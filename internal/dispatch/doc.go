// Package dispatch manages background notification queuing, processing, and
// lifecycle. It provides mechanisms for asynchronous delivery of assignment
// notifications, ensuring they don't block HTTP request handling and can
// recover from application restarts.
package dispatch
