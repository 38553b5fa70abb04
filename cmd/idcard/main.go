// Package main provides the idcard CLI.
//
// idcard reads national identity cards (French/Arabic) from images and
// prints the extracted fields.
//
// Usage:
//
//	idcard process card.jpg
//	idcard batch ./scans --markdown -o report.md
//	idcard watch ./inbox --save
//
// See --help for all available options.
package main

func main() {
	Execute()
}
