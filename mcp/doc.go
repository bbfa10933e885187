// Package mcp implements a small Model Context Protocol server and client.
//
// MCP is an open protocol that lets AI assistants reach external tools and
// data. Messages are JSON-RPC 2.0 objects, one per line, exchanged over
// stdio or any other byte stream.
//
// # Server
//
//	server := mcp.NewServer("multi-agent-tools")
//
//	// Expose any langchaingo tool; the schema comes from Parameters when present
//	server.AddTools(tool.All()...)
//
//	// Or register a handler directly
//	server.AddTool(mcp.Tool{
//		Name:        "greet",
//		Description: "Say hello",
//		InputSchema: map[string]any{"type": "object"},
//		Handler: func(ctx context.Context, args map[string]any) (string, error) {
//			return fmt.Sprintf("Hello, %v!", args["name"]), nil
//		},
//	})
//
//	server.AddResource(mcp.Resource{
//		URI:  "config://app",
//		Name: "App config",
//		Reader: func(ctx context.Context) (string, error) {
//			return "debug=true", nil
//		},
//	})
//
//	// Serve line-delimited JSON-RPC on stdio
//	err := server.Serve(ctx, os.Stdin, os.Stdout)
//
// # Client
//
//	client, err := mcp.NewCommandClient(ctx, "multiagent", "mcp", "serve")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	if _, err := client.Connect(ctx); err != nil {
//		return err
//	}
//	out, err := client.CallTool(ctx, "calculate", map[string]any{"expression": "2+2"})
//
//	// Server tools as langchaingo tools for an agent
//	remote, err := mcp.RemoteTools(ctx, client)
//
// The server and client interoperate with the official
// github.com/modelcontextprotocol/go-sdk implementation.
package mcp
