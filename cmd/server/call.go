package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/wardstats/pkg/mcpquic"
	"github.com/mark3labs/mcp-go/mcp"
)

func cmdCall(args []string) {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	addr := fs.String("addr", "localhost:8420", "server address (UDP)")
	tool := fs.String("tool", "", "tool name, e.g. topic_report")
	toolArgs := fs.String("args", "{}", "tool arguments as a JSON object")
	list := fs.Bool("list", false, "list available tools")
	insecure := fs.Bool("insecure", true, "skip certificate verification")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout")
	fs.Parse(args)

	if !*list && *tool == "" {
		fmt.Fprintln(os.Stderr, "usage: wardstats call -tool <name> [-args '{...}'] | -list")
		os.Exit(1)
	}

	var arguments map[string]any
	if err := json.Unmarshal([]byte(*toolArgs), &arguments); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -args: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := mcpquic.NewClient(*addr, mcpquic.ClientTLSConfig(*insecure))
	if err := c.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if *list {
		res, err := c.ListTools(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list tools: %v\n", err)
			os.Exit(1)
		}
		for _, t := range res.Tools {
			fmt.Printf("%-20s %s\n", t.Name, t.Description)
		}
		return
	}

	res, err := c.CallTool(ctx, *tool, arguments)
	if err != nil {
		fmt.Fprintf(os.Stderr, "call %s: %v\n", *tool, err)
		os.Exit(1)
	}
	for _, content := range res.Content {
		fmt.Println(contentText(content))
	}
	if res.IsError {
		os.Exit(1)
	}
}

func contentText(c mcp.Content) string {
	switch v := c.(type) {
	case mcp.TextContent:
		return v.Text
	case *mcp.TextContent:
		return v.Text
	}
	data, _ := json.Marshal(c)
	return string(data)
}
