package main

import (
	"flag"
	"log"
	"os"

	"github.com/danmuck/diagctl/internal/config"
)

const defaultPath = "cmd/diagctl/config.toml"

func main() {
	format := flag.String("format", "toml", "config format: toml|yaml")
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	dump := flag.Bool("print", false, "print the effective config (defaults applied) of -input")
	input := flag.String("input", defaultPath, "config path for -validate and -print")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate || *dump {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		if *dump {
			data, err := config.Encode(cfg, *format)
			if err != nil {
				log.Fatal(err)
			}
			if _, err := os.Stdout.Write(data); err != nil {
				log.Fatal(err)
			}
			return
		}
		log.Printf("Validated router config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *format, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s router config template to %s", *format, *output)
}
