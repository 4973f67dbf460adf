package mcp

import "github.com/mark3labs/mcp-go/mcp"

var captureToolDef = mcp.NewTool("link_capture",
	mcp.WithDescription("Capture a Reddit post: check the URL, extract the post title and body, summarize it "+
		"and append it to the saved list. Refused URLs and duplicates leave the list untouched."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Reddit post URL (any reddit.com host)"),
	),
	mcp.WithString("html_path",
		mcp.Description("Read the page from a saved .html file instead of fetching url"),
	),
)

var listToolDef = mcp.NewTool("link_list",
	mcp.WithDescription("List saved links in capture order, oldest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum entries to return (default: all, max 500)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Entries to skip"),
	),
)

var copyToolDef = mcp.NewTool("link_copy_csv",
	mcp.WithDescription("Render the saved list as CSV text with a header row."),
)

var exportToolDef = mcp.NewTool("link_export",
	mcp.WithDescription("Write the saved list to a CSV file. Defaults to a timestamped file in the exports directory."),
	mcp.WithString("path",
		mcp.Description("Destination .csv path"),
	),
)

var clearToolDef = mcp.NewTool("link_clear",
	mcp.WithDescription("Remove every saved link from the current session."),
)

var importToolDef = mcp.NewTool("link_import",
	mcp.WithDescription("Load links from a .json or .csv file into the saved list."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Source .json or .csv path"),
	),
	mcp.WithString("mode",
		mcp.Description("append (default) keeps the list and adds new URLs; replace swaps the list for the file"),
		mcp.Enum("append", "replace"),
	),
)

var keyStatusToolDef = mcp.NewTool("key_status",
	mcp.WithDescription("Report whether an OpenAI API key is saved. Only the last four characters are shown."),
)
