package rc

import "os"

var lookupEnv = os.LookupEnv
