package config

import "github.com/alecthomas/kong"

type Cli struct {
	Version kong.VersionFlag

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogCaller  bool   `kong:"name=log-caller,env=LOG_CALLER,default=false,help='Add file:line of the caller to log output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`

	Profile string `kong:"name=profile,type=existingfile,env=UNPAK_PROFILE,help='Game profile file. (eg. ./profiles/quake.yml)'"`
	Driver  string `kong:"name=driver,env=UNPAK_DRIVER,help='Force archive driver instead of signature detection. (eg. hpak)'"`

	List    ListCmd    `kong:"cmd,name=list,help='List archive entries.'"`
	Extract ExtractCmd `kong:"cmd,name=extract,help='Extract archive entries in a local folder.'"`
	Resolve ResolveCmd `kong:"cmd,name=resolve,help='Resolve an asset path against an archive.'"`
	Inspect InspectCmd `kong:"cmd,name=inspect,help='Load an asset and print its contents.'"`
	Pack    PackCmd    `kong:"cmd,name=pack,help='Build a game archive from a folder.'"`
}

type ListCmd struct {
	Archive string `kong:"arg,required,name=archive,type=existingfile,help='Archive file. (eg. ./pak0.pk3)'"`
}

type ExtractCmd struct {
	Includes []string `kong:"name=include,help='Include a subset of files/dirs from the archive.'"`
	RmDist   bool     `kong:"name=rm-dist,default=false,help='Removes dist folder.'"`
	Repack   bool     `kong:"name=repack,default=false,help='Also write extracted files to a zip archive next to dist folder.'"`
	Workers  int      `kong:"name=workers,env=UNPAK_WORKERS,default=4,help='Number of entries extracted in parallel.'"`

	Archive string `kong:"arg,required,name=archive,type=existingfile,help='Archive file. (eg. ./pak0.pk3)'"`
	Dist    string `kong:"arg,required,name=dist,type=path,help='Dist folder. (eg. ./dist)'"`
}

type ResolveCmd struct {
	Kind string `kong:"name=kind,default=any,enum='any,texture,mesh,scene,record,sound',help='Asset kind hint.'"`

	Archive string `kong:"arg,required,name=archive,type=existingfile,help='Archive file. (eg. ./pak0.pk3)'"`
	Path    string `kong:"arg,required,name=path,help='Asset path, extension and folder optional. (eg. meshes/rock)'"`
}

type InspectCmd struct {
	Kind string `kong:"name=kind,default=any,enum='any,texture,mesh,scene,record,sound',help='Asset kind hint.'"`
	As   string `kong:"name=as,help='Wanted capability. (eg. texture)'"`
	To   string `kong:"name=to,help='Transform target. (textured-mesh, unknown-file-model or table)'"`

	Archive string `kong:"arg,required,name=archive,type=existingfile,help='Archive file. (eg. ./pak0.pk3)'"`
	Path    string `kong:"arg,required,name=path,help='Asset path, extension and folder optional. (eg. scenes/cave)'"`
}

type PackCmd struct {
	Format    string `kong:"name=format,default=hpak,enum='hpak,cpak',help='Archive format.'"`
	Codec     string `kong:"name=codec,default=zstd,enum='raw,lz4,zstd',help='Chunk codec for cpak archives.'"`
	NoDeflate bool   `kong:"name=no-deflate,default=false,help='Store hpak entries uncompressed.'"`

	Src string `kong:"arg,required,name=src,type=existingdir,help='Source folder.'"`
	Out string `kong:"arg,required,name=out,type=path,help='Output archive. (eg. ./game.hpak)'"`
}
