package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTimeProvider(t *testing.T) {
	providerMu.Lock()
	globalTimeProvider = nil
	providerMu.Unlock()

	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{
			name:     "local timezone",
			timezone: "Local",
			wantErr:  false,
		},
		{
			name:     "UTC timezone",
			timezone: "UTC",
			wantErr:  false,
		},
		{
			name:     "valid timezone Asia/Shanghai",
			timezone: "Asia/Shanghai",
			wantErr:  false,
		},
		{
			name:     "invalid timezone",
			timezone: "Invalid/Timezone",
			wantErr:  true,
		},
		{
			name:     "empty timezone defaults to Local",
			timezone: "",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitializeTimeProvider(tt.timezone)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid timezone")
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, globalTimeProvider)
			}
		})
	}
}

func TestGetTimeProvider(t *testing.T) {
	providerMu.Lock()
	globalTimeProvider = nil
	providerMu.Unlock()

	provider := GetTimeProvider()
	require.NotNil(t, provider)
	assert.Equal(t, time.Local, provider.Location())

	assert.Same(t, provider, GetTimeProvider())
}

func TestTimeProvider_ParseDate(t *testing.T) {
	provider := &TimeProvider{}
	require.NoError(t, provider.SetTimezone("Asia/Tokyo"))

	got, err := provider.ParseDate("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 2, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, "Asia/Tokyo", got.Location().String())

	today, err := provider.ParseDate("")
	require.NoError(t, err)
	assert.True(t, SameDay(today, provider.Now(), provider.Location()))

	_, err = provider.ParseDate("02/01/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected YYYY-MM-DD")
}

func TestSameDay(t *testing.T) {
	utc := time.UTC
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	lateNight := time.Date(2024, 1, 1, 23, 59, 0, 0, utc)
	earlyMorning := time.Date(2024, 1, 2, 0, 1, 0, 0, utc)

	tests := []struct {
		name string
		a, b time.Time
		loc  *time.Location
		want bool
	}{
		{"two minutes apart across midnight", lateNight, earlyMorning, utc, false},
		{"same day", lateNight, time.Date(2024, 1, 1, 0, 0, 0, 0, utc), utc, true},
		{"same instant viewed from another zone", lateNight, earlyMorning, tokyo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameDay(tt.a, tt.b, tt.loc))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 3, 9, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestTimeProvider_Concurrency(t *testing.T) {
	provider := &TimeProvider{}
	require.NoError(t, provider.SetTimezone("UTC"))

	var wg sync.WaitGroup
	errors := make(chan error, 100)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = provider.Now()
			_ = provider.In(time.Now())
			_ = provider.Format(time.Now(), time.RFC3339)
			_ = provider.Today()
		}()
	}

	timezones := []string{"UTC", "Asia/Shanghai", "America/New_York", "Europe/London"}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := provider.SetTimezone(timezones[idx%len(timezones)]); err != nil {
				errors <- err
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		t.Errorf("Concurrent operation error: %v", err)
	}
}

func TestTimeProvider_TimezoneConversions(t *testing.T) {
	provider := &TimeProvider{}
	testTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		timezone     string
		expectedHour int
		expectedDay  int
	}{
		{"UTC", 12, 15},
		{"Asia/Shanghai", 20, 15},
		{"America/New_York", 8, 15},
		{"Australia/Sydney", 22, 15},
	}

	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			require.NoError(t, provider.SetTimezone(tt.timezone))

			converted := provider.In(testTime)
			assert.Equal(t, tt.expectedHour, converted.Hour())
			assert.Equal(t, tt.expectedDay, converted.Day())
		})
	}
}

func TestInitializeTimeProvider_ErrorMessage(t *testing.T) {
	err := InitializeTimeProvider("Invalid/Zone")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "invalid timezone 'Invalid/Zone'")
	assert.Contains(t, err.Error(), "Valid examples:")
}
