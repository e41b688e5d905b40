package main

import "github.com/yorozuya-cybersecurity/yoro-audit/pkg/cli"

func main() {
	cli.Execute()
}
