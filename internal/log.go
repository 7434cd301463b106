// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var logMutex sync.Mutex
var logWriter io.Writer = os.Stdout
var logFile *os.File

// Redirect log output, e.g. to ioutil.Discard in tests. Closes nothing
func SetLogWriter(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logWriter = w
}

// Duplicate log output into the given file, in addition to stdout
func LogAlsoToFile(fileName string) error {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	logMutex.Lock()
	defer logMutex.Unlock()
	logFile = f
	logWriter = io.MultiWriter(os.Stdout, logFile)
	return nil
}

// Flush and close the log file, if any
func LogSync() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Sync()
		logFile.Close()
		logFile = nil
		logWriter = os.Stdout
	}
}

func LogPrintf(format string, v ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintf(logWriter, format, v...)
}

func LogPrintln(v ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintln(logWriter, v...)
}

func LogFatal(v ...interface{}) {
	LogPrintln(v...)
	LogSync()
	os.Exit(-1)
}

func LogFatalf(format string, v ...interface{}) {
	LogPrintf(format, v...)
	LogSync()
	os.Exit(-1)
}
