package demux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	command string
	lines   []string
}

type recorder struct {
	outstanding map[string]bool
	responses   []response
	unsolicited []string
	raw         []string
}

func newRecorder(commands ...string) *recorder {
	r := &recorder{outstanding: make(map[string]bool)}
	for _, v := range commands {
		r.outstanding[v] = true
	}
	return r
}

func (r *recorder) Outstanding(line string) bool { return r.outstanding[line] }
func (r *recorder) Response(command string, lines []string) {
	r.responses = append(r.responses, response{command, lines})
}
func (r *recorder) Unsolicited(line string) { r.unsolicited = append(r.unsolicited, line) }
func (r *recorder) Raw(line string)         { r.raw = append(r.raw, line) }

const rmc = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"

func TestDemux_ResponseAndPositioning(t *testing.T) {
	rec := newRecorder("AT+CSQ")
	d := New("\r\n", "+GPSRD", rec)

	_, err := d.Write([]byte("AT+CSQ\r\n+CSQ: 18,99\r\nOK\r\n" + rmc + "\r\n"))
	require.NoError(t, err)

	assert.Equal(t, []response{{"AT+CSQ", []string{"+CSQ: 18,99", "OK"}}}, rec.responses)
	assert.Equal(t, []string{rmc}, rec.unsolicited)
	assert.Equal(t, []string{"AT+CSQ", "+CSQ: 18,99", "OK", rmc}, rec.raw)
}

func TestDemux_PartialLines(t *testing.T) {
	rec := newRecorder("AT+GPSMD?")
	d := New("\r\n", "+GPSRD", rec)
	stream := "AT+GPSMD?\r\n+GPSMD: 2\r\n\r\nOK\r\n+GPSRD:" + rmc + "\r\n"

	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		d.Write([]byte(stream[i:end]))
	}

	assert.Equal(t, []response{{"AT+GPSMD?", []string{"+GPSMD: 2", "OK"}}}, rec.responses)
	assert.Equal(t, []string{"+GPSRD:" + rmc}, rec.unsolicited)
}

func TestDemux_LineTooLong(t *testing.T) {
	rec := newRecorder()
	d := New("\r\n", "+GPSRD", rec)
	noise := []byte(strings.Repeat("\xff", 1024))

	for i := 0; i < 1000; i++ {
		d.Write(noise)
		require.LessOrEqual(t, len(d.partial), MaxLineLength)
	}
	d.Write([]byte("\r\n" + rmc + "\r\n"))

	assert.Equal(t, []string{rmc}, rec.unsolicited)
	assert.Empty(t, d.partial)
}

func TestDemux_PositioningInsideBlock(t *testing.T) {
	rec := newRecorder("AT+CSQ")
	d := New("\r\n", "+GPSRD", rec)

	for _, line := range []string{"AT+CSQ", "+GPSRD:" + rmc, rmc, "+CSQ: 5,99", "OK"} {
		d.Line(line)
	}

	require.Len(t, rec.responses, 1)
	assert.Equal(t, []string{"+CSQ: 5,99", "OK"}, rec.responses[0].lines)
	assert.Equal(t, []string{"+GPSRD:" + rmc, rmc}, rec.unsolicited)
}

func TestDemux_MarkerNeverMatchesCommand(t *testing.T) {
	rec := newRecorder("AT+GPSRD=1")
	d := New("\r\n", "+GPSRD", rec)

	d.Line("AT+GPSRD=1")
	d.Line("OK")

	assert.Empty(t, rec.responses)
	assert.Equal(t, []string{"AT+GPSRD=1", "OK"}, rec.unsolicited)
}

func TestDemux_UnterminatedBlock(t *testing.T) {
	rec := newRecorder("AT+CSQ", "AT+GPSMD?")
	d := New("\r\n", "+GPSRD", rec)

	d.Write([]byte("AT+CSQ\r\n+CSQ: 18,99\r\n"))
	cmd, ok := d.Pending()
	require.True(t, ok)
	assert.Equal(t, "AT+CSQ", cmd)

	// a new echo abandons the open block
	d.Write([]byte("AT+GPSMD?\r\n+GPSMD: 1\r\nERROR\r\n"))
	assert.Equal(t, []response{{"AT+GPSMD?", []string{"+GPSMD: 1", "ERROR"}}}, rec.responses)

	d.Write([]byte("AT+CSQ\r\n+CSQ: 1"))
	d.Reset()
	_, ok = d.Pending()
	assert.False(t, ok)
	d.Write([]byte("OK\r\n"))
	assert.Len(t, rec.responses, 1)
	assert.Equal(t, []string{"OK"}, rec.unsolicited)
}

func TestDemux_CmeErrorTerminates(t *testing.T) {
	rec := newRecorder("AT+CPIN?")
	d := New("\r\n", "+GPSRD", rec)

	d.Write([]byte("AT+CPIN?\r\n+CME ERROR: 10\r\n"))

	assert.Equal(t, []response{{"AT+CPIN?", []string{"+CME ERROR: 10"}}}, rec.responses)
}

func TestDemux_CustomDelimiter(t *testing.T) {
	rec := newRecorder("AT")
	d := New("\n", "", rec)

	d.Write([]byte("AT\nOK\n$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48\n"))

	assert.Equal(t, []response{{"AT", []string{"OK"}}}, rec.responses)
	assert.Len(t, rec.unsolicited, 1)
	assert.True(t, strings.HasPrefix(rec.unsolicited[0], "$GPVTG"))
}

func TestDemux_DefaultDelimiterAndBlankLines(t *testing.T) {
	rec := newRecorder()
	d := New("", "+GPSRD", rec)

	d.Write([]byte("\r\n   \r\nREADY\r\n"))

	assert.Equal(t, []string{"READY"}, rec.raw)
	assert.Equal(t, []string{"READY"}, rec.unsolicited)
}
