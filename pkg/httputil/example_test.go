package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/slimdeps/pkg/httputil"
)

func ExampleRetry() {
	attempt := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempt++
		if attempt < 2 {
			return httputil.Retryable(errors.New("503 service unavailable"))
		}
		return nil
	})
	fmt.Println("attempts:", attempt)
	fmt.Println("error:", err)
	// Output:
	// attempts: 2
	// error: <nil>
}
