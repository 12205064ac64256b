package sandbox

import (
	"fmt"
	"regexp"
)

var (
	pathLoadPattern   = regexp.MustCompile(`pd\.read_csv\(['"].*?['"]\)`)
	bufferLoadPattern = regexp.MustCompile(`pd\.read_csv\(StringIO\(.*?\)\)`)
)

// RewriteDatasetLoads redirects data-loading calls that reference a
// literal path or in-memory buffer to the dataset file the sandbox
// provisions. Scripts that already read the provisioned name are
// unchanged.
func RewriteDatasetLoads(code string) string {
	replacement := fmt.Sprintf(`pd.read_csv("%s")`, DatasetFileName)
	code = pathLoadPattern.ReplaceAllString(code, replacement)
	code = bufferLoadPattern.ReplaceAllString(code, replacement)
	return code
}
