// Package localserver opens the Unix domain socket that local clients use
// to reach the RESP server without a TCP port.
//
// Access is controlled by file system permissions: the socket is created
// with mode 0600 inside a directory the server owns. The listener carries
// the same protocol as the TCP ports and is served by redisserver.Serve.
//
//	ln, err := localserver.Listen(ctx, "/run/respkv/respkv.sock")
//	go resp.Serve(ctx, ln)
package localserver
