// Package tool provides the built-in tools (skills) available to agents.
//
// Every tool implements the langchaingo tools.Tool interface and also
// describes its arguments as a JSON schema through Parameters, so it can be
// offered to a model as a function definition or exposed over MCP.
//
// # Available Tools
//
//	calculate         arithmetic with + - * / and parentheses
//	get_current_time  current date and time
//	read_file         read a text file (truncated at 5000 characters)
//	write_file        write a text file, creating parent directories
//	list_directory    list up to 50 directory entries
//	web_search_mock   answers from a small built-in knowledge base
//	analyze_code      line counts, structure and risky patterns
//	format_json       validate and pretty-print JSON
//	text_stats        character, word, sentence and paragraph counts
//	convert_units     km/miles, celsius/fahrenheit, kg/lbs, meters/feet, liters/gallons
//	generate_uuid     random UUID
//	encode_base64     text to base64
//	decode_base64     base64 to text
//
// A Brave Search backed web_search tool is available through NewBraveSearch
// when BRAVE_API_KEY is configured, and NewFetchURL returns a fetch_url
// tool that extracts the visible text of a web page. Neither is part of All.
//
// # Usage
//
//	// All tools, or a subset for a specific agent
//	all := tool.All()
//	coder := tool.ForAgent("analyze_code", "format_json", "calculate")
//
//	// Arguments are passed as JSON, or as the raw value for single-argument tools
//	out, err := tool.ConvertUnits.Call(ctx, `{"value": 10, "from_unit": "km", "to_unit": "miles"}`)
//	out, err = tool.Calculate.Call(ctx, "2 + 2 * 3")
//
//	// Function definitions for llms.WithTools
//	defs := tool.Definitions(coder)
//
// Tool failures that a model can recover from (a missing file, invalid
// JSON) are reported in the returned text. Only malformed arguments produce
// an error.
package tool
