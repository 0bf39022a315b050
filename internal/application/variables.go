package application

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/davarch/remote-trigger/internal/domain"
)

const (
	VarLastTriggeredJobName = "LAST_TRIGGERED_JOB_NAME"
	VarTriggeredJobNames    = "TRIGGERED_JOB_NAMES"
	varBuildNumberPrefix    = "TRIGGERED_BUILD_NUMBER_"
	varBuildNumbersPrefix   = "TRIGGERED_BUILD_NUMBERS_"
	varBuildResultPrefix    = "TRIGGERED_BUILD_RESULT_"
	varRunCountPrefix       = "TRIGGERED_BUILD_RUN_COUNT_"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeJobName turns a job name into a token usable in variable names.
func SanitizeJobName(job string) string {
	return nonAlphanumeric.ReplaceAllString(job, "_")
}

// ComposeVariables derives the variables for one trigger, accumulating the
// histories and the run counter found in prior. prior is not modified.
func ComposeVariables(prior domain.Variables, job string, buildNumber int, status domain.BuildStatus) (domain.Variables, error) {
	key := SanitizeJobName(job)
	num := strconv.Itoa(buildNumber)

	runCount := 0
	if prev, ok := prior[varRunCountPrefix+key]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(prev))
		if err != nil {
			return nil, fmt.Errorf("%w: %s%s=%q is not a number", domain.ErrInvalidInput, varRunCountPrefix, key, prev)
		}
		runCount = n
	}

	return domain.Variables{
		VarLastTriggeredJobName:                    job,
		varBuildNumberPrefix + key:                 num,
		VarTriggeredJobNames:                       appendHistory(prior[VarTriggeredJobNames], job),
		varBuildNumbersPrefix + key:                appendHistory(prior[varBuildNumbersPrefix+key], num),
		varBuildResultPrefix + key:                 string(status),
		varBuildResultPrefix + key + "_RUN_" + num: string(status),
		varRunCountPrefix + key:                    strconv.Itoa(runCount + 1),
	}, nil
}

func appendHistory(prev, item string) string {
	if prev == "" {
		return item
	}
	return prev + "," + item
}
