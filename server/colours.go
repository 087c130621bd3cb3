package server

const (
	green      = "\033[32m"
	blue       = "\033[34m"
	cyan       = "\033[36m"
	yellow     = "\033[33m"
	magenta    = "\033[35m"
	gray       = "\033[90m"
	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

func colourMethod(method string) string {
	padded := " " + method
	for len(padded) < 8 {
		padded += " "
	}
	if color, ok := methodColors[method]; ok {
		return color + padded + resetColor
	}
	return gray + padded + resetColor
}
