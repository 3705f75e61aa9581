package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode управляет прогресс-таблицей: auto поднимает её только в живом
// терминале, on/off — принудительно.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		// В CI и dumb-терминалах интерактивная таблица только засоряет логи.
		if os.Getenv("CI") != "" || os.Getenv("TERM") == "dumb" {
			return false
		}
		return isTerminal(os.Stdout)
	}
}
