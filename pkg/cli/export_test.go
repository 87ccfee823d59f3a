package cli

var PrintStatus = printStatus
